package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"strings"

	"yyblog/internal/config"
)

var commentMailTemplate = template.Must(template.New("comment").Parse(`<p>{{.Commenter}} 在《{{.Title}}》下发表了评论：</p>
<blockquote>{{.Content}}</blockquote>
<p><a href="{{.Link}}">查看评论</a></p>
`))

type MailService struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Enabled  bool

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailService(cfg config.Config) *MailService {
	enabled := cfg.SMTPHost != "" && cfg.SMTPUsername != "" && cfg.SMTPPassword != "" && cfg.SMTPFrom != ""
	if !enabled {
		log.Println("⚠️ MailService disabled: Missing SMTP environment variables.")
	}

	return &MailService{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		Enabled:  enabled,
		sendMail: smtp.SendMail,
	}
}

func (s *MailService) buildMessage(to []string, subject, body string) []byte {
	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	return []byte(fmt.Sprintf("To: %s\r\n"+
		"From: YYBlog <%s>\r\n"+
		"Subject: %s\r\n"+
		"%s\r\n%s", strings.Join(to, ","), s.From, subject, mime, body))
}

func (s *MailService) sendAsync(to []string, subject string, body string) {
	if !s.Enabled {
		return
	}

	go func() {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

		err := s.sendMail(addr, auth, s.From, to, s.buildMessage(to, subject, body))
		if err != nil {
			log.Printf("❌ Failed to send email to %v: %v", to, err)
		} else {
			log.Printf("✅ Email sent to %v: %s", to, subject)
		}
	}()
}

func renderCommentMail(commenter, title, content, link string) (string, error) {
	var buf bytes.Buffer
	err := commentMailTemplate.Execute(&buf, map[string]string{
		"Commenter": commenter,
		"Title":     title,
		"Content":   content,
		"Link":      link,
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute comment template: %w", err)
	}
	return buf.String(), nil
}

// SendCommentNotification mails the blog owner about a new comment.
func (s *MailService) SendCommentNotification(email, commenter, articleTitle, content, postLink string) {
	body, err := renderCommentMail(commenter, articleTitle, content, postLink)
	if err != nil {
		log.Printf("Error rendering notification email: %v", err)
		return
	}
	s.sendAsync([]string{email}, "💬 "+commenter+" 评论了《"+articleTitle+"》", body)
}
