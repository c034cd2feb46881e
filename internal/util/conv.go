package util

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrInvalidID = errors.New("invalid id")

// ParseID 解析路径中的正整数 ID，0、负数和非数字都返回 ErrInvalidID
func ParseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, strconv.IntSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	if id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return uint(id), nil
}
