//go:build !linux && !darwin

package bleuio

import (
	"errors"
	"os"
)

// FilePort is not available on this platform.
type FilePort struct {
	*os.File
}

// OpenFilePort is not available on this platform.
func OpenFilePort(path string) (*FilePort, error) {
	return nil, errors.New("file transport is not supported on this platform")
}

func (p *FilePort) SetDTR(bool) error { return errors.ErrUnsupported }
func (p *FilePort) SetRTS(bool) error { return errors.ErrUnsupported }
