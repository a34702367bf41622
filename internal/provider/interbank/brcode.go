// internal/provider/interbank/brcode.go
package interbank

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BuildBRCode assembles the EMV "copia e cola" PIX payload for a static
// charge. Field ids and layout follow the Banco Central BR Code spec.
func BuildBRCode(pixKey, merchantName, merchantCity string, amount decimal.Decimal, txid string) string {
	if txid == "" {
		txid = "***"
	}

	merchantAccount := emvField("00", "BR.GOV.BCB.PIX") + emvField("01", pixKey)

	var b strings.Builder
	b.WriteString(emvField("00", "01")) // payload format indicator
	b.WriteString(emvField("26", merchantAccount))
	b.WriteString(emvField("52", "0000")) // merchant category code
	b.WriteString(emvField("53", "986"))  // BRL
	if amount.IsPositive() {
		b.WriteString(emvField("54", amount.StringFixed(2)))
	}
	b.WriteString(emvField("58", "BR"))
	b.WriteString(emvField("59", merchantName))
	b.WriteString(emvField("60", merchantCity))
	b.WriteString(emvField("62", emvField("05", txid)))

	payload := b.String()
	return payload + "6304" + crc16(payload+"6304")
}

func emvField(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

// crc16 is CRC-16/CCITT-FALSE over the payload including the pending "6304"
// field header, as required by the BR Code spec.
func crc16(payload string) string {
	const polynomial = 0x1021
	crc := 0xFFFF

	for i := 0; i < len(payload); i++ {
		crc ^= int(payload[i]) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ polynomial
			} else {
				crc <<= 1
			}
			crc &= 0xFFFF
		}
	}

	return fmt.Sprintf("%04X", crc)
}
