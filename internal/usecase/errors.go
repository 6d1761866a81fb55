package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeOrderNotFound      = "ORDER_NOT_FOUND"
	CodeOrderItemNotFound  = "ORDER_ITEM_NOT_FOUND"
	CodeProductNotFound    = "PRODUCT_NOT_FOUND"
	CodeCustomerNotFound   = "CUSTOMER_NOT_FOUND"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeCustomerHasOrders  = "CUSTOMER_HAS_ORDERS"
	CodeProductInUse       = "PRODUCT_IN_USE"
	CodeInvalidDiscount    = "INVALID_DISCOUNT"
	CodeMissingProductInfo = "MISSING_PRODUCT_INFO"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInternal           = "INTERNAL"
)

// handlerがそのままレスポンスにする
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string][]string
	// 500の原因（クライアントには返さない）
	Cause error
}

func (e *HTTPError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%d %s: %s: %v", e.Status, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Cause
}

// Codeが同じなら同じエラー扱い（errors.Is用）
func (e *HTTPError) Is(target error) bool {
	t, ok := target.(*HTTPError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// errors.Is の比較対象
var (
	ErrOrderNotFound      = &HTTPError{Code: CodeOrderNotFound}
	ErrOrderItemNotFound  = &HTTPError{Code: CodeOrderItemNotFound}
	ErrProductNotFound    = &HTTPError{Code: CodeProductNotFound}
	ErrCustomerNotFound   = &HTTPError{Code: CodeCustomerNotFound}
	ErrInsufficientStock  = &HTTPError{Code: CodeInsufficientStock}
	ErrCustomerHasOrders  = &HTTPError{Code: CodeCustomerHasOrders}
	ErrProductInUse       = &HTTPError{Code: CodeProductInUse}
	ErrInvalidDiscount    = &HTTPError{Code: CodeInvalidDiscount}
	ErrMissingProductInfo = &HTTPError{Code: CodeMissingProductInfo}
	ErrValidation         = &HTTPError{Code: CodeValidationFailed}
	ErrInternal           = &HTTPError{Code: CodeInternal}
)

func notFound(code string, format string, args ...any) error {
	return &HTTPError{Status: http.StatusNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func businessRule(code string, format string, args ...any) error {
	return &HTTPError{Status: http.StatusBadRequest, Code: code, Message: fmt.Sprintf(format, args...)}
}

// フィールドごとのメッセージ付き
func ValidationFailed(fields map[string][]string) error {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Code:    CodeValidationFailed,
		Message: "validation failed",
		Fields:  fields,
	}
}

func validationField(field string, msg string) error {
	return ValidationFailed(map[string][]string{field: {msg}})
}

// 想定外のエラー（DBなど）は中身を隠す
func internalError(err error) error {
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "internal error",
		Cause:   err,
	}
}
