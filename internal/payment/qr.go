package payment

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// TransferMemo is the text buyers put into the bank transfer comment so the
// admin can match the money to a round.
func TransferMemo(orderID uuid.UUID, round RoundName, amount decimal.Decimal) string {
	return fmt.Sprintf("GROUPBUY %s %s %s", orderID, round, amount.StringFixed(2))
}

// TransferQR renders memo as a size x size PNG QR code.
func TransferQR(memo string, size int) ([]byte, error) {
	qr, err := qrcode.New(memo, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("payment: failed to build qr code: %w", err)
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, qr.Image(size)); err != nil {
		return nil, fmt.Errorf("payment: failed to encode qr code: %w", err)
	}
	return buf.Bytes(), nil
}
