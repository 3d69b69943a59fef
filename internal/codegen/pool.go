package codegen

import "sync"

// scratchPool recycles register files of a fixed size.
type scratchPool struct {
	pool sync.Pool
	size int
}

func newScratchPool(size int) *scratchPool {
	return &scratchPool{
		size: size,
		pool: sync.Pool{
			New: func() any {
				s := make([]float64, size)
				return &s
			},
		},
	}
}

func (p *scratchPool) get() *[]float64 {
	return p.pool.Get().(*[]float64)
}

func (p *scratchPool) put(s *[]float64) {
	if len(*s) == p.size {
		p.pool.Put(s)
	}
}

// getAndCopy returns a register file initialised from src.
func (p *scratchPool) getAndCopy(src []float64) *[]float64 {
	dst := p.get()
	copy(*dst, src)
	return dst
}
