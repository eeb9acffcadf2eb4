package utils

import (
	"strings"
)

// MaskMSISDN keeps the first three and last four digits of a phone number
func MaskMSISDN(msisdn string) string {
	if len(msisdn) < 8 {
		return strings.Repeat("*", len(msisdn))
	}
	return msisdn[:3] + strings.Repeat("*", len(msisdn)-7) + msisdn[len(msisdn)-4:]
}

// MaskMemberID hides all but the last four characters of a member id
func MaskMemberID(id string) string {
	if len(id) <= 4 {
		return id
	}
	return strings.Repeat("*", len(id)-4) + id[len(id)-4:]
}
