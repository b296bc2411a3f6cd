package checks

import "eliwatch/internal/source"

func SourceKey(src *source.Source) string {
	if src == nil {
		return ""
	}
	return src.Key()
}

func NewResult(src *source.Source, checkID string, status Status, messages ...string) Result {
	res := Result{
		CheckID: checkID,
		Source:  SourceKey(src),
		Status:  status,
	}
	for _, m := range messages {
		if m != "" {
			res.Messages = append(res.Messages, m)
		}
	}
	return res
}

func GoodResult(src *source.Source, checkID string, messages ...string) Result {
	return NewResult(src, checkID, StatusGood, messages...)
}

func WarningResult(src *source.Source, checkID string, messages ...string) Result {
	return NewResult(src, checkID, StatusWarning, messages...)
}

func ErrorResult(src *source.Source, checkID string, messages ...string) Result {
	return NewResult(src, checkID, StatusError, messages...)
}

// MissingResult is the error reported when the required property field is absent.
func MissingResult(src *source.Source, checkID, field string) Result {
	res := ErrorResult(src, checkID, "Missing "+field)
	res.Missing = true
	return res
}

// NotCheckedResult is the warning reported for deselected or skipped checks.
func NotCheckedResult(src *source.Source, checkID string) Result {
	return WarningResult(src, checkID, NotChecked)
}
