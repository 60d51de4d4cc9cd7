package capture

import (
	"io"
	"log"
)

// LineObserver receives every non-empty raw line before it is classified.
// It must not block for long: it runs inside the read loop.
type LineObserver func(line string)

// EchoObserver prints each device line through the standard logger.
func EchoObserver(line string) {
	log.Println(line)
}

// WriterObserver copies each line, newline-terminated, to w. Write errors
// are ignored.
func WriterObserver(w io.Writer) LineObserver {
	return func(line string) {
		_, _ = io.WriteString(w, line+"\n")
	}
}

// Observers fans one line out to several observers in order.
func Observers(obs ...LineObserver) LineObserver {
	return func(line string) {
		for _, o := range obs {
			if o != nil {
				o(line)
			}
		}
	}
}

func nopObserver(string) {}
