package loopback

// output writes command window text into a bound capture buffer. Text that
// does not fit is dropped; a NUL follows the text when there is room.
type output struct {
	buf []byte
	n   int
}

func (o *output) bind(buf []byte) {
	o.buf = buf
	o.n = 0
}

func (o *output) reset() {
	o.n = 0
	if len(o.buf) > 0 {
		o.buf[0] = 0
	}
}

func (o *output) WriteString(s string) {
	if o.buf == nil {
		return
	}
	o.n += copy(o.buf[o.n:], s)
	if o.n < len(o.buf) {
		o.buf[o.n] = 0
	}
}
