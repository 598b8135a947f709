package authinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/iam/auth"
	"github.com/Abraxas-365/clientportal/pkg/kernel"
	"github.com/Abraxas-365/clientportal/pkg/logx"
)

// LogxAuditService implements auth.AuditService using structured logx logging.
type LogxAuditService struct{}

var _ auth.AuditService = (*LogxAuditService)(nil)

func NewLogxAuditService() *LogxAuditService {
	return &LogxAuditService{}
}

func (s *LogxAuditService) LogLogin(ctx context.Context, userID kernel.UserID, method string, success bool, ip string) {
	entry := logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "login",
		"user_id":     userID,
		"method":      method,
		"success":     success,
		"ip":          ip,
		"timestamp":   time.Now(),
	})
	if success {
		entry.Info("Audit: login")
		return
	}
	entry.Warn("Audit: login failed")
}

func (s *LogxAuditService) LogLogout(ctx context.Context, userID kernel.UserID, ip string) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "logout",
		"user_id":     userID,
		"ip":          ip,
		"timestamp":   time.Now(),
	}).Info("Audit: logout")
}

func (s *LogxAuditService) LogAccountCreated(ctx context.Context, userID kernel.UserID, method string) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "account_created",
		"user_id":     userID,
		"method":      method,
		"timestamp":   time.Now(),
	}).Info("Audit: account created")
}

func (s *LogxAuditService) LogAccountLinked(ctx context.Context, userID kernel.UserID, provider string) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "account_linked",
		"user_id":     userID,
		"provider":    provider,
		"timestamp":   time.Now(),
	}).Info("Audit: account linked")
}

func (s *LogxAuditService) LogEmailVerified(ctx context.Context, userID kernel.UserID) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "email_verified",
		"user_id":     userID,
		"timestamp":   time.Now(),
	}).Info("Audit: email verified")
}
