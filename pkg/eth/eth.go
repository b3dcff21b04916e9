// Package eth holds the small amount of Ethereum plumbing the client needs
// for display: address validation, EIP-55 checksumming, and wei formatting.
// No signing and no node logic live here; the chain is only ever read
// through the remote RPC endpoint.
package eth

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidAddress reports whether s looks like a 20-byte hex address.
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// ChecksumAddress returns the EIP-55 mixed-case form of an address.
func ChecksumAddress(addr string) (string, error) {
	if !ValidAddress(addr) {
		return "", fmt.Errorf("invalid address %q", addr)
	}

	lower := strings.ToLower(strings.TrimPrefix(addr, "0x"))
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(lower))
	digest := hex.EncodeToString(hash.Sum(nil))

	out := make([]byte, len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			c = c - 'a' + 'A'
		}
		out[i] = c
	}
	return "0x" + string(out), nil
}

// ShortAddress renders 0xabcd…ef12 for compact display.
func ShortAddress(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

var weiPerEth = new(big.Float).SetFloat64(1e18)

// FormatWei renders a wei amount (0x-prefixed hex or decimal string) as ETH
// with five decimal places, the precision used everywhere prices show up.
func FormatWei(wei string) string {
	wei = strings.TrimSpace(wei)
	if wei == "" {
		return "0.00000"
	}

	n := new(big.Int)
	var ok bool
	if strings.HasPrefix(wei, "0x") || strings.HasPrefix(wei, "0X") {
		_, ok = n.SetString(wei[2:], 16)
	} else {
		_, ok = n.SetString(wei, 10)
	}
	if !ok {
		return "0.00000"
	}

	f := new(big.Float).Quo(new(big.Float).SetInt(n), weiPerEth)
	return f.Text('f', 5)
}
