/*
Copyright 2025 The Mysqlbulk Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package bucketpool provides a sync.Pool of byte slices, bucketed by
// capacity, so that packet buffers of wildly different sizes don't all
// churn through one pool.
package bucketpool

import "sync"

type sizedPool struct {
	size int
	pool sync.Pool
}

func newSizedPool(size int) *sizedPool {
	return &sizedPool{
		size: size,
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, size)
				return &b
			},
		},
	}
}

// Pool is a pool of []byte slices bucketed by capacity. Each bucket
// holds slices of twice the previous bucket's capacity, from minSize up
// to maxSize.
type Pool struct {
	minSize int
	maxSize int
	pools   []*sizedPool
}

// New creates a bucketed pool with buckets minSize, 2*minSize, ... up
// to and including a bucket of maxSize.
func New(minSize, maxSize int) *Pool {
	if maxSize < minSize {
		panic("maxSize can't be less than minSize")
	}
	const multiplier = 2
	var pools []*sizedPool
	curSize := minSize
	for curSize < maxSize {
		pools = append(pools, newSizedPool(curSize))
		curSize *= multiplier
	}
	pools = append(pools, newSizedPool(maxSize))
	return &Pool{
		minSize: minSize,
		maxSize: maxSize,
		pools:   pools,
	}
}

func (p *Pool) findPool(size int) *sizedPool {
	if size > p.maxSize {
		return nil
	}
	idx := 0
	poolSize := p.minSize
	for size > poolSize {
		poolSize *= 2
		idx++
	}
	return p.pools[idx]
}

// Get returns a pointer to a []byte of the requested length. Slices
// larger than the largest bucket are allocated directly and will not be
// pooled on Put.
func (p *Pool) Get(size int) *[]byte {
	sp := p.findPool(size)
	if sp == nil {
		b := make([]byte, size)
		return &b
	}
	buf := sp.pool.Get().(*[]byte)
	*buf = (*buf)[:size]
	return buf
}

// Put returns a buffer obtained from Get back to its bucket.
func (p *Pool) Put(b *[]byte) {
	sp := p.findPool(cap(*b))
	if sp == nil || cap(*b) != sp.size {
		return
	}
	*b = (*b)[:cap(*b)]
	sp.pool.Put(b)
}
