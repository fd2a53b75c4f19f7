package output

import "github.com/atotto/clipboard"

func isUnsupported() bool {
	return clipboard.Unsupported
}
