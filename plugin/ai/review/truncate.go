package review

// DeliveryLimit is the messaging transport's hard per-message size, in
// characters.
const DeliveryLimit = 5000

// TruncationMarker is appended whenever outbound text is cut, so a shortened
// review is never silently passed off as complete.
const TruncationMarker = "\n…(文字数制限により省略)"

// PushSafeTruncate bounds text to limit characters for outbound delivery,
// appending TruncationMarker when it cuts. This is the single explicit
// length guard in the system; every call site that forwards generated text
// externally must pass it through here.
func PushSafeTruncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	marker := []rune(TruncationMarker)
	if limit <= len(marker) {
		return string(marker[len(marker)-limit:])
	}
	return string(runes[:limit-len(marker)]) + TruncationMarker
}
