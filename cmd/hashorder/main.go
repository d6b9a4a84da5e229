// Command hashorder builds a sample order, computes its EIP-712 hash the
// same way internal/orderbook does internally, and optionally signs it
// with a freshly generated key. Useful for manually checking a hash
// against the test vector in spec.md section 8, or for producing a
// ready-to-POST order body for engined's /api/v1/orders endpoint.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/ddxclob/internal/clobcrypto"
	"github.com/uhyunpark/ddxclob/internal/clobtypes"
	"github.com/uhyunpark/ddxclob/pkg/crypto"
)

func main() {
	amount := flag.String("amount", "1234", "order amount")
	price := flag.String("price", "5432", "order price")
	side := flag.String("side", "bid", "bid or ask")
	nonce := flag.Uint64("nonce", 12, "order nonce")
	trader := flag.String("trader", "0x3A880652F47bFaa771908C07Dd8673A787dAEd3A", "trader address (0x-hex)")
	sign := flag.Bool("sign", false, "generate a key, override -trader with its address, and sign the order hash")
	flag.Parse()

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad amount: %v\n", err)
		os.Exit(1)
	}
	px, err := decimal.NewFromString(*price)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad price: %v\n", err)
		os.Exit(1)
	}
	var orderSide clobtypes.Side
	switch *side {
	case "bid":
		orderSide = clobtypes.Bid
	case "ask":
		orderSide = clobtypes.Ask
	default:
		fmt.Fprintf(os.Stderr, "bad side: %s (want bid or ask)\n", *side)
		os.Exit(1)
	}

	traderAddr := clobtypes.Address{}
	traderAddr.SetBytes(decodeHex(*trader))

	var signer *crypto.Signer
	if *sign {
		signer, err = crypto.GenerateKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "key generation failed: %v\n", err)
			os.Exit(1)
		}
		traderAddr = signer.Address()
		fmt.Printf("Generated address: %s\n", traderAddr.Hex())
		fmt.Printf("Private key: %s (KEEP SECRET!)\n\n", signer.PrivateKeyHex())
	}

	order := clobtypes.Order{
		Amount:        amt,
		Price:         px,
		Side:          orderSide,
		TraderAddress: traderAddr,
		Nonce:         clobtypes.NonceFromUint64(*nonce),
	}

	hasher := clobcrypto.NewDefaultOrderHasher()
	order.Hash = hasher.Hash(order)

	fmt.Println("Order:")
	fmt.Printf("  amount: %s\n", order.Amount)
	fmt.Printf("  price:  %s\n", order.Price)
	fmt.Printf("  side:   %s\n", order.Side)
	fmt.Printf("  nonce:  %s\n", order.Nonce)
	fmt.Printf("  trader: %s\n", order.TraderAddress.Hex())
	fmt.Printf("  hash:   %s\n\n", order.Hash.Hex())

	if signer != nil {
		sig, err := signer.Sign(order.Hash.Bytes())
		if err != nil {
			fmt.Fprintf(os.Stderr, "signing failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Signature: 0x%x\n\n", sig)

		if !crypto.VerifySignature(traderAddr, order.Hash.Bytes(), sig) {
			fmt.Fprintln(os.Stderr, "signature verification failed")
			os.Exit(1)
		}
		fmt.Println("Signature verified against the order hash.")
	}

	body, _ := json.MarshalIndent(order, "", "  ")
	fmt.Println("\nJSON body for POST /api/v1/orders:")
	fmt.Println(string(body))
}

func decodeHex(s string) []byte {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b := make([]byte, len(s)/2)
	for i := range b {
		b[i] = hexByte(s[i*2], s[i*2+1])
	}
	return b
}

func hexByte(hi, lo byte) byte {
	return hexNibble(hi)<<4 | hexNibble(lo)
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}
