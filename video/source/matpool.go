package source

import (
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// maxPoolAllocations bounds runaway allocation when a caller leaks frames.
const maxPoolAllocations = 500

// MatPool recycles Mats so that steady-state frame traffic does not allocate.
type MatPool struct {
	newc   chan chan gocv.Mat
	freec  chan gocv.Mat
	closec chan bool

	allocated int
	available []gocv.Mat
}

func NewMatPool() *MatPool {
	p := &MatPool{
		newc:   make(chan chan gocv.Mat),
		freec:  make(chan gocv.Mat),
		closec: make(chan bool),
	}
	go p.loop()
	return p
}

func (p *MatPool) loop() {
	closed := false
	for {
		select {
		case <-p.closec:
			closed = true
			for _, m := range p.available {
				m.Close()
				p.allocated -= 1
			}
			p.available = nil
		case m := <-p.freec:
			if closed {
				m.Close()
				p.allocated -= 1
			} else {
				p.available = append(p.available, m)
			}
		case r := <-p.newc:
			var m gocv.Mat
			if len(p.available) > 0 {
				m, p.available = p.available[0], p.available[1:]
			} else {
				m = gocv.NewMat()
				p.allocated += 1
				if p.allocated > maxPoolAllocations {
					log.Fatalf("Too many MatPool allocations. Perhaps a Frame isn't being released?")
				}
			}
			r <- m
		}
	}
}

func (p *MatPool) NewMat() gocv.Mat {
	r := make(chan gocv.Mat)
	p.newc <- r
	return <-r
}

func (p *MatPool) ReleaseMat(m gocv.Mat) {
	p.freec <- m
}

func (p *MatPool) Close() {
	p.closec <- true
}
