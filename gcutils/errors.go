package gcutils

import "github.com/pkg/errors"

// OutOfMemoryError is the error returned from allocation methods when fulfilling the request
// would push the managed heap past its configured size limit
var OutOfMemoryError error = errors.New("managed heap is out of memory")

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being
// tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")
