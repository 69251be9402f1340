package session

import (
	"github.com/skip2/go-qrcode"
)

// QRCode renders the self-order URL for a token as a PNG, sized for the
// table slip printer.
func (s *Service) QRCode(token string) ([]byte, error) {
	return qrcode.Encode(s.SelfOrderURL(token), qrcode.Medium, 256)
}
