package util

import (
	"github.com/vmihailenco/msgpack"

	"github.com/njoroge/tembo/storage/disk"
)

// ToByteSlice renders obj into a page-sized buffer, zero padded.
func ToByteSlice[T any](obj T) ([]byte, error) {
	res := make([]byte, disk.PAGE_SIZE)

	data, err := msgpack.Marshal(obj)
	if err != nil {
		return nil, err
	}
	copy(res, data)

	return res, nil
}

func ToStruct[T any](data []byte) (T, error) {
	var res T

	if err := msgpack.Unmarshal(data, &res); err != nil {
		return res, err
	}

	return res, nil
}
