package domain

import "testing"

func TestClassifyLabels(t *testing.T) {
	tests := []struct {
		name      string
		sysLabels []string
		want      EmailLabel
	}{
		{"inbox label", []string{"inbox"}, LabelInbox},
		{"important counts as inbox", []string{"important"}, LabelInbox},
		{"inbox beats sent", []string{"sent", "inbox"}, LabelInbox},
		{"sent label", []string{"sent"}, LabelSent},
		{"sent beats draft", []string{"draft", "sent"}, LabelSent},
		{"draft label", []string{"draft"}, LabelDraft},
		{"unknown falls back to inbox", []string{"starred"}, LabelInbox},
		{"empty falls back to inbox", nil, LabelInbox},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyLabels(tt.sysLabels); got != tt.want {
				t.Errorf("ClassifyLabels(%v) = %q, want %q", tt.sysLabels, got, tt.want)
			}
		})
	}
}

func TestRecomputeThreadStatus(t *testing.T) {
	tests := []struct {
		name   string
		labels []EmailLabel
		want   EmailLabel
	}{
		{"empty thread defaults to sent", nil, LabelSent},
		{"all sent", []EmailLabel{LabelSent, LabelSent}, LabelSent},
		{"any inbox dominates", []EmailLabel{LabelSent, LabelDraft, LabelInbox}, LabelInbox},
		{"inbox first short-circuits", []EmailLabel{LabelInbox, LabelDraft}, LabelInbox},
		{"draft without inbox", []EmailLabel{LabelSent, LabelDraft}, LabelDraft},
		{"draft then sent stays draft", []EmailLabel{LabelDraft, LabelSent}, LabelDraft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecomputeThreadStatus(tt.labels); got != tt.want {
				t.Errorf("RecomputeThreadStatus(%v) = %q, want %q", tt.labels, got, tt.want)
			}
		})
	}
}

func TestParticipants(t *testing.T) {
	msg := &RawMessage{
		From: MessageAddress{Address: "a@x.com"},
		To:   []MessageAddress{{Address: "b@x.com"}},
		Cc:   []MessageAddress{{Address: "b@x.com"}, {Address: "c@x.com"}},
	}

	got := msg.Participants()
	if len(got) != 4 {
		t.Fatalf("expected 4 participants (duplicates kept), got %d", len(got))
	}
	if got[0].Address != "a@x.com" {
		t.Errorf("sender should come first, got %s", got[0].Address)
	}
}
