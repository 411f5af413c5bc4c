//go:build alloctrace

package segheap

import (
	"fmt"
	"os"
)

const trace = true

func tracef(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "segheap: "+format+"\n", args...)
}
