package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 支援 errors.Is / errors.As
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeConflict        = "CONFLICT"          // 409
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE" // 413

	// 服務器錯誤 (5xx)
	ErrCodeInternalError = "INTERNAL_ERROR" // 500

	// 業務錯誤
	ErrCodeUnsupportedLocale = "UNSUPPORTED_LOCALE"
	ErrCodeFetchFailure      = "FETCH_FAILURE"
	ErrCodeParseFailure      = "PARSE_FAILURE"
	ErrCodeNoValidRecipes    = "NO_VALID_RECIPES"
	ErrCodeUnknownProvider   = "UNKNOWN_PROVIDER"
)

// UnsupportedLocaleError 站點沒有對應語系的版本
// 對該 Provider 而言是致命錯誤，需回報呼叫端且不重試
type UnsupportedLocaleError struct {
	Provider string
	Locale   string
}

func (e *UnsupportedLocaleError) Error() string {
	return "provider " + e.Provider + " has no edition for locale " + e.Locale
}

// NewUnsupportedLocaleError 創建語系不支援錯誤
func NewUnsupportedLocaleError(provider, locale string) error {
	return &UnsupportedLocaleError{Provider: provider, Locale: locale}
}

// IsUnsupportedLocale 檢查是否為語系不支援錯誤
func IsUnsupportedLocale(err error) bool {
	var target *UnsupportedLocaleError
	return errors.As(err, &target)
}

// FetchFailureError 網路錯誤或非 2xx 狀態碼
// 對單一分類／單一項目可恢復，不中斷整批流程
type FetchFailureError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchFailureError) Error() string {
	if e.Err != nil {
		return "fetch " + e.URL + " failed: " + e.Err.Error()
	}
	return "fetch " + e.URL + " failed with status " + http.StatusText(e.StatusCode)
}

func (e *FetchFailureError) Unwrap() error {
	return e.Err
}

// NewFetchFailureError 創建抓取失敗錯誤
func NewFetchFailureError(url string, statusCode int, err error) error {
	return &FetchFailureError{URL: url, StatusCode: statusCode, Err: err}
}

// IsFetchFailure 檢查是否為抓取失敗錯誤
func IsFetchFailure(err error) bool {
	var target *FetchFailureError
	return errors.As(err, &target)
}

// ParseFailureError 頁面抓取成功但找不到可辨識的結構化食譜資料
type ParseFailureError struct {
	URL    string
	Reason string
}

func (e *ParseFailureError) Error() string {
	return "parse " + e.URL + " failed: " + e.Reason
}

// NewParseFailureError 創建解析失敗錯誤
func NewParseFailureError(url, reason string) error {
	return &ParseFailureError{URL: url, Reason: reason}
}

// IsParseFailure 檢查是否為解析失敗錯誤
func IsParseFailure(err error) bool {
	var target *ParseFailureError
	return errors.As(err, &target)
}

// ErrNoValidRecipes 匯入階段所有食譜的食材都在對應時被略過
// 對整個匯入流程是致命錯誤，以 error 終態呈現給使用者
var ErrNoValidRecipes = errors.New("no valid recipes after mapping")
