//go:build !linux

package shell

import (
	"sync"

	"golang.design/x/clipboard"
)

// systemClipboard initializes the platform clipboard on first use.
func systemClipboard() Copier {
	var (
		once    sync.Once
		initErr error
	)
	return func(text string) error {
		once.Do(func() { initErr = clipboard.Init() })
		if initErr != nil {
			return initErr
		}
		clipboard.Write(clipboard.FmtText, []byte(text))
		return nil
	}
}
