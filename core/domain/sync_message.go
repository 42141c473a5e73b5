// Package domain holds the core mail sync domain model.
package domain

import (
	"encoding/json"
	"time"
)

// EmailLabel is the coarse classification bucket of a message.
type EmailLabel string

const (
	LabelInbox EmailLabel = "inbox"
	LabelSent  EmailLabel = "sent"
	LabelDraft EmailLabel = "draft"
)

// System label values as supplied by mailbox providers.
const (
	SysLabelInbox     = "inbox"
	SysLabelImportant = "important"
	SysLabelSent      = "sent"
	SysLabelDraft     = "draft"
)

// MessageAddress is a participant address as it appears on the wire.
type MessageAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	Raw     string `json:"raw,omitempty"`
}

// MessageAttachment is an attachment as supplied by the message source.
type MessageAttachment struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	MimeType        string `json:"mimeType"`
	Size            int64  `json:"size"`
	Inline          bool   `json:"inline"`
	ContentID       string `json:"contentId,omitempty"`
	ContentLocation string `json:"contentLocation,omitempty"`
	Content         []byte `json:"content,omitempty"`
}

// RawMessage is one unit of mail content handed to the pipeline by the
// message source. The pipeline never fetches these itself.
type RawMessage struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Subject  string `json:"subject"`

	Body        string `json:"body,omitempty"`
	BodySnippet string `json:"bodySnippet,omitempty"`

	From    MessageAddress   `json:"from"`
	To      []MessageAddress `json:"to"`
	Cc      []MessageAddress `json:"cc"`
	Bcc     []MessageAddress `json:"bcc"`
	ReplyTo []MessageAddress `json:"replyTo"`

	SentAt      time.Time `json:"sentAt"`
	ReceivedAt  time.Time `json:"receivedAt"`
	CreatedTime time.Time `json:"createdTime"`

	SysLabels          []string `json:"sysLabels"`
	Keywords           []string `json:"keywords"`
	SysClassifications []string `json:"sysClassifications"`
	Sensitivity        string   `json:"sensitivity,omitempty"`

	MeetingMessageMethod string `json:"meetingMessageMethod,omitempty"`

	InternetMessageID string `json:"internetMessageId"`
	InReplyTo         string `json:"inReplyTo,omitempty"`
	References        string `json:"references,omitempty"`
	ThreadIndex       string `json:"threadIndex,omitempty"`

	HasAttachments bool                `json:"hasAttachments"`
	Attachments    []MessageAttachment `json:"attachments,omitempty"`

	// Provider-opaque payloads, stored but never interpreted.
	InternetHeaders  json.RawMessage `json:"internetHeaders,omitempty"`
	NativeProperties json.RawMessage `json:"nativeProperties,omitempty"`

	FolderID string   `json:"folderId,omitempty"`
	Omitted  []string `json:"omitted,omitempty"`
}

// Participants returns every address on the message (sender first),
// in field order. Duplicates are not collapsed here; the resolver
// dedupes by address string.
func (m *RawMessage) Participants() []MessageAddress {
	addrs := make([]MessageAddress, 0, 1+len(m.To)+len(m.Cc)+len(m.Bcc)+len(m.ReplyTo))
	addrs = append(addrs, m.From)
	addrs = append(addrs, m.To...)
	addrs = append(addrs, m.Cc...)
	addrs = append(addrs, m.Bcc...)
	addrs = append(addrs, m.ReplyTo...)
	return addrs
}

// ClassifyLabels derives the message-level label from provider system
// labels: inbox or important wins, then sent, then draft; anything else
// falls back to inbox. Evaluated once per message at upsert time.
func ClassifyLabels(sysLabels []string) EmailLabel {
	has := func(want string) bool {
		for _, l := range sysLabels {
			if l == want {
				return true
			}
		}
		return false
	}

	switch {
	case has(SysLabelInbox) || has(SysLabelImportant):
		return LabelInbox
	case has(SysLabelSent):
		return LabelSent
	case has(SysLabelDraft):
		return LabelDraft
	default:
		return LabelInbox
	}
}

// RecomputeThreadStatus derives the dominant thread label from the labels
// of every email in the thread, ordered by receivedAt ascending. Default
// is sent; any inbox email wins immediately; otherwise a draft email
// demotes the thread to draft. Pure so it can be tested without storage.
func RecomputeThreadStatus(labels []EmailLabel) EmailLabel {
	status := LabelSent
	for _, label := range labels {
		if label == LabelInbox {
			return LabelInbox
		}
		if label == LabelDraft {
			status = LabelDraft
		}
	}
	return status
}
