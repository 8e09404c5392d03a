// Package validator builds input validation from small composable rules.
//
// Each rule captures its value and evaluates lazily. Apply runs all of them
// and reports every failure at once as ValidationErrors:
//
//	err := validator.Apply(
//		validator.RequiredString("title", s.Title),
//		validator.MaxLenString("title", s.Title, 200),
//		validator.InListString("level", s.Level, levels),
//	)
//	if errs := validator.ExtractValidationErrors(err); errs.Has("title") {
//		...
//	}
//
// Custom checks are plain Rule values with a Check func and an Error.
package validator
