package source

import (
	"image"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

const openRetryDelay = time.Second

// VideoCapture is a FrameSource backed by a gocv capture device (camera index,
// file, or stream URI). A background goroutine keeps the freshest decoded frame
// and CurrentFrame hands out pooled copies of it. Until the device opens and
// delivers its first frame, CurrentFrame returns ErrUnavailable.
type VideoCapture struct {
	URI string

	pool   *MatPool
	reqc   chan chan frameResult
	sizec  chan chan image.Point
	closec chan chan bool
}

type frameResult struct {
	frame Frame
	err   error
}

func NewVideoCapture(uri string) *VideoCapture {
	v := &VideoCapture{
		URI:    uri,
		pool:   NewMatPool(),
		reqc:   make(chan chan frameResult),
		sizec:  make(chan chan image.Point),
		closec: make(chan chan bool),
	}
	go v.loop()
	return v
}

func (v *VideoCapture) loop() {
	var cap *gocv.VideoCapture
	cur := gocv.NewMat()
	var curTime time.Time
	have := false

	defer func() {
		cur.Close()
		if cap != nil {
			cap.Close()
		}
		v.pool.Close()
	}()

	for {
		select {
		case c := <-v.closec:
			c <- true
			return

		case r := <-v.reqc:
			if !have {
				r <- frameResult{err: ErrUnavailable}
				continue
			}
			m := v.pool.NewMat()
			cur.CopyTo(&m)
			r <- frameResult{frame: Frame{Mat: m, Time: curTime, pool: v.pool}}

		case r := <-v.sizec:
			if !have {
				r <- image.Point{}
				continue
			}
			r <- image.Point{X: cur.Cols(), Y: cur.Rows()}

		default:
			if cap == nil {
				var err error
				cap, err = gocv.OpenVideoCapture(v.URI)
				if err != nil {
					log.Errorf("Failed to open video capture %v: %v", v.URI, err)
					cap = nil
					time.Sleep(openRetryDelay)
					continue
				}
				log.Infof("Opened video capture %v", v.URI)
			}
			if ok := cap.Read(&cur); !ok || cur.Empty() {
				// Transient read failure; next cycle will try again.
				time.Sleep(10 * time.Millisecond)
				continue
			}
			curTime = time.Now()
			have = true
		}
	}
}

func (v *VideoCapture) CurrentFrame() (Frame, error) {
	r := make(chan frameResult)
	v.reqc <- r
	res := <-r
	return res.frame, res.err
}

func (v *VideoCapture) Size() image.Point {
	r := make(chan image.Point)
	v.sizec <- r
	return <-r
}

func (v *VideoCapture) Close() {
	c := make(chan bool)
	v.closec <- c
	<-c
}
