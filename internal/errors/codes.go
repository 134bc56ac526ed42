// Package errors provides structured error handling for webqa.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 3XX: External service errors (fetch, embedding, vector store, model)
//   - 4XX: User input errors
//   - 5XX: Answering and internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryExternal indicates a failing external collaborator.
	CategoryExternal Category = "EXTERNAL"
	// CategoryInput indicates a user input error that is recovered locally.
	CategoryInput Category = "INPUT"
	// CategoryInternal indicates answering and unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid = "ERR_101_CONFIG_INVALID"

	// External service errors (300-399)
	ErrCodeFetchFailed     = "ERR_301_FETCH_FAILED"
	ErrCodeEmbeddingFailed = "ERR_302_EMBEDDING_FAILED"
	ErrCodeStoreFailed     = "ERR_303_STORE_FAILED"
	ErrCodeModelFailed     = "ERR_304_MODEL_FAILED"

	// Input errors (400-499)
	ErrCodeEmptyURLList = "ERR_401_EMPTY_URL_LIST"
	ErrCodeNotIndexed   = "ERR_402_NOT_INDEXED"
	ErrCodeNoContent    = "ERR_403_NO_CONTENT"

	// Answering and internal errors (500-599)
	ErrCodeNoAnswer     = "ERR_501_NO_ANSWER"
	ErrCodeAnswerFailed = "ERR_502_ANSWER_FAILED"
	ErrCodeInternal     = "ERR_503_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '3':
		return CategoryExternal
	case '4':
		return CategoryInput
	default:
		return CategoryInternal
	}
}
