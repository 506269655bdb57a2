package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// 持久化存储中使用的键，与前端 localStorage 的布局保持一致。
const (
	KeyDarkMode    = "darkMode"
	KeyChatHistory = "chatHistory"
)

// ErrMalformedLog 表示持久化的对话记录无法解析。
var ErrMalformedLog = errors.New("malformed chat history")

// Message is one exchanged turn: the user's prompt and the model's answer.
type Message struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Timestamp int64  `json:"timestamp"`
}

// EncodeLog 将对话记录序列化为 JSON 数组，空记录编码为 "[]"。
func EncodeLog(messages []Message) (string, error) {
	if messages == nil {
		messages = []Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("encode chat history: %w", err)
	}
	return string(data), nil
}

// DecodeLog parses a serialized conversation log. JSON null yields an empty log.
func DecodeLog(raw string) ([]Message, error) {
	var messages []Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLog, err)
	}
	if messages == nil {
		messages = []Message{}
	}
	return messages, nil
}
