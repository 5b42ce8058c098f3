// Package errors provides standardized error types for the storefront.
// It defines the two error kinds surfaced to presentation layers (fetch failures
// and missing products) plus helper functions for error checking.
//
// Package errors 提供商店前端的标准化错误类型。
// 它定义了向表示层暴露的两类错误（获取失败和商品不存在）以及用于错误检查的辅助函数。
package errors

import (
	"errors"
	"fmt"
)

// Standard errors that can be returned by storefront components.
//
// 商店前端组件可能返回的标准错误。
var (
	// ErrNotFound is returned when a requested product does not exist.
	// 当请求的商品不存在时返回ErrNotFound。
	ErrNotFound = errors.New("storefront: product not found")

	// ErrClosed is returned when an operation is performed on a closed component.
	// 当对已关闭的组件执行操作时返回ErrClosed。
	ErrClosed = errors.New("storefront: component is closed")

	// ErrInvalidParam is returned when a navigable URL parameter cannot be decoded.
	// 当无法解码URL参数时返回ErrInvalidParam。
	ErrInvalidParam = errors.New("storefront: invalid parameter")

	// ErrInvalidProduct is returned when the remote catalog returns a record
	// that violates the product contract.
	// 当远程目录返回违反商品约定的记录时返回ErrInvalidProduct。
	ErrInvalidProduct = errors.New("storefront: invalid product record")
)

// FetchError represents a failed call to the remote catalog service,
// either a transport failure or a non-2xx HTTP status.
//
// FetchError 表示对远程目录服务的失败调用，
// 可能是传输失败，也可能是非2xx的HTTP状态。
type FetchError struct {
	Op         string // Operation name, e.g. "fetch all products" / 操作名称
	URL        string // Requested URL / 请求的URL
	StatusCode int    // HTTP status, 0 for transport failures / HTTP状态码，传输失败时为0
	Err        error  // The underlying error, may be nil / 底层错误，可能为nil
}

// Error returns the error message.
// It implements the error interface.
//
// Error 返回错误消息。
// 它实现了error接口。
func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("failed to %s: %s returned status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("failed to %s: %s returned status %d", e.Op, e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("failed to %s", e.Op)
	}
}

// Unwrap returns the underlying error.
// This allows errors.Is and errors.As to work with wrapped errors.
//
// Unwrap 返回底层错误。
// 这允许errors.Is和errors.As与包装的错误一起工作。
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
//
// NewFetchError 创建一个新的FetchError。
//
// Parameters:
//   - op: The operation that failed
//   - url: The requested URL
//   - status: The HTTP status code, or 0 for transport failures
//   - err: The underlying error, may be nil
//
// Returns:
//   - *FetchError: A new fetch error instance
func NewFetchError(op, url string, status int, err error) *FetchError {
	return &FetchError{Op: op, URL: url, StatusCode: status, Err: err}
}

// ProductError represents an error related to a specific product.
// It wraps an underlying error with the product identifier that caused it.
//
// ProductError 表示与特定商品相关的错误。
// 它用导致错误的商品标识符包装底层错误。
type ProductError struct {
	ID  int   // The product identifier / 商品标识符
	Err error // The underlying error / 底层错误
}

// Error returns the error message.
//
// Error 返回错误消息。
func (e *ProductError) Error() string {
	return fmt.Sprintf("%s: id %d", e.Err, e.ID)
}

// Unwrap returns the underlying error.
//
// Unwrap 返回底层错误。
func (e *ProductError) Unwrap() error {
	return e.Err
}

// NewProductError creates a new ProductError.
//
// NewProductError 创建一个新的ProductError。
//
// Parameters:
//   - id: The product identifier
//   - err: The underlying error
//
// Returns:
//   - *ProductError: A new product error instance
func NewProductError(id int, err error) *ProductError {
	return &ProductError{ID: id, Err: err}
}

// IsNotFound returns true if the error indicates that a product was not found.
//
// IsNotFound 如果错误表示未找到商品，则返回true。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsFetchError returns true if the error is or wraps a FetchError.
//
// IsFetchError 如果错误是或包装了FetchError，则返回true。
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// AsFetchError extracts the FetchError from an error chain.
//
// AsFetchError 从错误链中提取FetchError。
//
// Parameters:
//   - err: The error to inspect
//
// Returns:
//   - *FetchError: The fetch error, or nil
//   - bool: True if a FetchError was found
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsClosed returns true if the error indicates that a component is closed.
//
// IsClosed 如果错误表示组件已关闭，则返回true。
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsInvalidParam returns true if the error indicates a malformed URL parameter.
//
// IsInvalidParam 如果错误表示URL参数格式错误，则返回true。
func IsInvalidParam(err error) bool {
	return errors.Is(err, ErrInvalidParam)
}
