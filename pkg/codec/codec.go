// Package codec provides the serialization used for locally persisted entries.
// The favorites store encodes its identifier set through a Codec so that the
// on-disk representation stays a plain JSON array.
//
// Package codec 提供本地持久化条目使用的序列化。
// 收藏存储通过Codec编码其标识符集合，使磁盘上的表示保持为普通JSON数组。
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Codec defines the interface for encoding and decoding persisted values.
//
// Codec 定义了编码和解码持久化值的接口。
type Codec interface {
	// Marshal serializes a value into bytes.
	//
	// Marshal 将值序列化为字节。
	Marshal(value interface{}) ([]byte, error)

	// Unmarshal deserializes bytes into a value.
	// The value parameter should be a pointer to the target type.
	//
	// Unmarshal 将字节反序列化为值。
	// value参数应该是目标类型的指针。
	Unmarshal(data []byte, value interface{}) error

	// Name returns the name of this codec.
	//
	// Name 返回此编解码器的名称。
	Name() string
}

// JSONCodec implements Codec using JSON serialization.
//
// JSONCodec 使用JSON序列化实现Codec。
type JSONCodec struct {
	// Pretty determines whether to use indented JSON encoding.
	// Pretty 决定是否使用缩进的JSON编码。
	Pretty bool

	// Strict rejects unknown object fields and trailing data when decoding.
	// Strict 在解码时拒绝未知的对象字段和尾随数据。
	Strict bool
}

// Marshal serializes a value into JSON bytes.
//
// Marshal 将值序列化为JSON字节。
func (c *JSONCodec) Marshal(value interface{}) ([]byte, error) {
	if c.Pretty {
		return json.MarshalIndent(value, "", "  ")
	}
	return json.Marshal(value)
}

// Unmarshal deserializes JSON bytes into a value.
//
// Unmarshal 将JSON字节反序列化为值。
func (c *JSONCodec) Unmarshal(data []byte, value interface{}) error {
	if !c.Strict {
		return json.Unmarshal(data, value)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("jsoncodec: trailing data after value")
	}
	return nil
}

// Name returns "json".
func (c *JSONCodec) Name() string {
	return "json"
}

// NewJSONCodec creates a strict JSONCodec.
//
// NewJSONCodec 创建一个严格的JSONCodec。
func NewJSONCodec(pretty bool) *JSONCodec {
	return &JSONCodec{Pretty: pretty, Strict: true}
}

// DefaultCodec returns the default codec (compact, strict JSON).
//
// DefaultCodec 返回默认编解码器（紧凑、严格的JSON）。
func DefaultCodec() Codec {
	return NewJSONCodec(false)
}

// GetCodec returns a codec by name.
//
// GetCodec 通过名称返回编解码器。
func GetCodec(name string) (Codec, error) {
	switch name {
	case "json", "":
		return DefaultCodec(), nil
	case "json-pretty":
		return NewJSONCodec(true), nil
	default:
		return nil, fmt.Errorf("unknown codec: %s", name)
	}
}
