package util

import (
	"fmt"

	"github.com/vmihailenco/msgpack"
)

// ToByteSlice encodes obj with msgpack into a zero padded buffer of size
// bytes. It fails when the encoding does not fit.
func ToByteSlice[T any](obj T, size int) ([]byte, error) {
	data, err := msgpack.Marshal(obj)
	if err != nil {
		return nil, err
	}
	if len(data) > size {
		return nil, fmt.Errorf("encoded size %d exceeds %d bytes", len(data), size)
	}

	res := make([]byte, size)
	copy(res, data)
	return res, nil
}

func Marshal[T any](obj T) ([]byte, error) {
	return msgpack.Marshal(obj)
}

func ToStruct[T any](data []byte) (T, error) {
	var res T

	if err := msgpack.Unmarshal(data, &res); err != nil {
		return res, err
	}

	return res, nil
}
