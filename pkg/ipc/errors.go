package ipc

import "errors"

var errUnsupportedPlatform = errors.New("named pipe transport is only supported on windows")
