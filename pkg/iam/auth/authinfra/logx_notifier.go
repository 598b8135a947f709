package authinfra

import (
	"context"

	"github.com/Abraxas-365/clientportal/pkg/logx"
)

// LogxNotifier writes verification codes to the log instead of delivering
// them. Delivery providers plug in behind the same interface.
type LogxNotifier struct{}

func NewLogxNotifier() *LogxNotifier {
	return &LogxNotifier{}
}

func (n *LogxNotifier) SendOTP(ctx context.Context, contact string, code string) error {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"contact": contact,
		"code":    code,
	}).Info("verification code issued")
	return nil
}
