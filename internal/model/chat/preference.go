package chat

// EncodeDarkMode 返回主题偏好的存储形式。
func EncodeDarkMode(dark bool) string {
	if dark {
		return "true"
	}
	return "false"
}

// DecodeDarkMode treats anything other than the literal "true" as light mode.
func DecodeDarkMode(raw string) bool {
	return raw == "true"
}
