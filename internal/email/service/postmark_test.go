package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shrey-sa/tree-tracker/internal/config"
	edomain "github.com/Shrey-sa/tree-tracker/internal/email/domain"
)

func newMockedPostmark(t *testing.T) *Postmark {
	t.Helper()
	p := NewPostmark(config.MailConfig{PostmarkServerToken: "srv-token", From: "no-reply@trees.org"})
	p.client.BaseURL = "https://postmark.test"
	httpmock.ActivateNonDefault(p.client.HTTPClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return p
}

func TestPostmark_SendsHTMLTextAndTag(t *testing.T) {
	p := newMockedPostmark(t)

	var got map[string]any
	httpmock.RegisterResponder(http.MethodPost, "https://postmark.test/email", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "srv-token", req.Header.Get("X-Postmark-Server-Token"))
		if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
			return nil, err
		}
		return httpmock.NewStringResponse(http.StatusOK, `{"To":"mia@example.com","MessageID":"b7bc2f4a","ErrorCode":0,"Message":"OK"}`), nil
	})

	err := p.Send(context.Background(), edomain.Message{
		To: "mia@example.com", Subject: "subj", HTML: "<b>hi</b>", Text: "hi", Tag: "overdue-alerts",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Equal(t, "no-reply@trees.org", got["From"])
	assert.Equal(t, "mia@example.com", got["To"])
	assert.Equal(t, "subj", got["Subject"])
	assert.Equal(t, "<b>hi</b>", got["HtmlBody"])
	assert.Equal(t, "hi", got["TextBody"])
	assert.Equal(t, "overdue-alerts", got["Tag"])
	assert.Equal(t, true, got["TrackOpens"])
}

func TestPostmark_MessageFromOverridesConfig(t *testing.T) {
	p := newMockedPostmark(t)

	var got map[string]any
	httpmock.RegisterResponder(http.MethodPost, "https://postmark.test/email", func(req *http.Request) (*http.Response, error) {
		if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
			return nil, err
		}
		return httpmock.NewStringResponse(http.StatusOK, `{"ErrorCode":0,"Message":"OK"}`), nil
	})

	err := p.Send(context.Background(), edomain.Message{From: "ops@trees.org", To: "a@b.com", Subject: "s", Text: "t"})
	require.NoError(t, err)
	assert.Equal(t, "ops@trees.org", got["From"])
}

func TestPostmark_APIErrorCodeIsAnError(t *testing.T) {
	p := newMockedPostmark(t)
	httpmock.RegisterResponder(http.MethodPost, "https://postmark.test/email",
		httpmock.NewStringResponder(http.StatusOK, `{"ErrorCode":406,"Message":"You tried to send to a recipient that has been marked as inactive."}`))

	err := p.Send(context.Background(), edomain.Message{To: "a@b.com", Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "406")
	assert.Contains(t, err.Error(), "inactive")
}

func TestPostmark_TransportError(t *testing.T) {
	p := newMockedPostmark(t)
	httpmock.RegisterResponder(http.MethodPost, "https://postmark.test/email", httpmock.NewErrorResponder(errors.New("connection reset")))

	err := p.Send(context.Background(), edomain.Message{To: "a@b.com", Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postmark send to a@b.com")
}

func TestPostmark_MissingToken(t *testing.T) {
	p := NewPostmark(config.MailConfig{From: "no-reply@trees.org"})
	err := p.Send(context.Background(), edomain.Message{To: "a@b.com", Subject: "s", Text: "t"})
	assert.True(t, errors.Is(err, edomain.ErrNotConfigured))
}
