package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qs3c/datafair_server/config"
)

func TestService_Enabled(t *testing.T) {
	assert.False(t, NewService(nil).Enabled())
	assert.False(t, NewService(&config.EmailConfig{}).Enabled())
	assert.True(t, NewService(&config.EmailConfig{SMTPHost: "smtp.example.com"}).Enabled())
}

func TestService_SendWithoutSMTP(t *testing.T) {
	svc := NewService(&config.EmailConfig{})

	assert.NoError(t, svc.SendWelcome("a@example.com", "Anna"))
	assert.NoError(t, svc.SendPayoutCompleted("a@example.com", 12.5, "paypal", "tx-1"))
	assert.NoError(t, svc.SendPayoutFailed("a@example.com", 12.5, "gateway timeout"))
}

func TestService_BuildMessage(t *testing.T) {
	svc := NewService(&config.EmailConfig{From: "noreply@datafair.de"})

	msg := svc.buildMessage("a@example.com", "Hallo", "<p>body</p>")

	assert.True(t, strings.HasPrefix(msg, "From: noreply@datafair.de\r\n"))
	assert.Contains(t, msg, "To: a@example.com\r\n")
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>body</p>"))
}

func TestWrapHTML(t *testing.T) {
	html := wrapHTML("提现已到账", "<p>x</p>")

	assert.Contains(t, html, "<h2 style=\"color: #2563eb;\">提现已到账</h2><p>x</p>")
	assert.Contains(t, html, "请勿回复")
}
