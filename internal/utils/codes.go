package utils

import (
    "crypto/rand"
    "fmt"
    "math/big"

    "github.com/google/uuid"
)

// NewVerificationCode returns a random 6-digit activation code as a
// string.  The range is 100000-999999 so the code never has a leading
// zero, matching what users expect to type from an SMS.
func NewVerificationCode() (string, error) {
    n, err := rand.Int(rand.Reader, big.NewInt(900000))
    if err != nil {
        return "", err
    }
    return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// NewCode returns a fresh UUIDv4 string.  Used for asset scan codes and
// every code in the borehole voucher pipeline (purchase, agent, meter
// token).  Uniqueness is additionally enforced by database constraints.
func NewCode() string {
    return uuid.NewString()
}
