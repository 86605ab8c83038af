package vesting

import (
	"math/big"
	"testing"
)

func validParams() CreateParams {
	return CreateParams{
		Recipient:           recipientAddr,
		StartTimestamp:      100,
		EndTimestamp:        200,
		InitialUnlock:       big.NewInt(0),
		CliffAmount:         big.NewInt(0),
		ReleaseIntervalSecs: 10,
		LinearVestAmount:    big.NewInt(1000),
	}
}

func TestValidateCreateAccepsValidParams(t *testing.T) {
	if err := validateCreate(validParams()); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}
}

func TestValidateCreateRejectsZeroStart(t *testing.T) {
	p := validParams()
	p.StartTimestamp = 0
	requireKind(t, validateCreate(p), ErrInvalidStart)
}

func TestValidateCreateRejectsStartAfterEnd(t *testing.T) {
	p := validParams()
	p.StartTimestamp = 300
	requireKind(t, validateCreate(p), ErrInvalidStart)
}

func TestValidateCreateRejectsNegativeAmount(t *testing.T) {
	p := validParams()
	p.LinearVestAmount = big.NewInt(-1)
	requireKind(t, validateCreate(p), ErrInvalidAmount)
}

func TestValidateCreateRejectsAllZeroAmounts(t *testing.T) {
	p := validParams()
	p.CliffAmount = big.NewInt(0)
	p.LinearVestAmount = big.NewInt(0)
	requireKind(t, validateCreate(p), ErrInvalidAmount)
}

func TestValidateCreateRejectsZeroInterval(t *testing.T) {
	p := validParams()
	p.ReleaseIntervalSecs = 0
	requireKind(t, validateCreate(p), ErrInvalidInterval)
}

func TestValidateCreateRejectsCliffAmountWithoutCliffTimestamp(t *testing.T) {
	p := validParams()
	p.CliffAmount = big.NewInt(50)
	requireKind(t, validateCreate(p), ErrInvalidCliffAmount)
}

func TestValidateCreateRejectsNonMultipleIntervalWithoutCliff(t *testing.T) {
	p := validParams()
	p.ReleaseIntervalSecs = 7
	requireKind(t, validateCreate(p), ErrInvalidIntervalLength)
}

func TestValidateCreateRejectsCliffTimestampOutsideRange(t *testing.T) {
	p := validParams()
	p.CliffReleaseTimestamp = 50
	p.CliffAmount = big.NewInt(100)
	requireKind(t, validateCreate(p), ErrInvalidCliffRelease)
}

func TestValidateCreateRejectsZeroCliffAmountWithCliffTimestamp(t *testing.T) {
	p := validParams()
	p.CliffReleaseTimestamp = 150
	p.CliffAmount = big.NewInt(0)
	requireKind(t, validateCreate(p), ErrInvalidCliffAmount)
}

func TestValidateCreateRejectsNonMultipleIntervalWithCliff(t *testing.T) {
	p := validParams()
	p.CliffReleaseTimestamp = 150
	p.CliffAmount = big.NewInt(100)
	p.LinearVestAmount = big.NewInt(900)
	p.ReleaseIntervalSecs = 7
	requireKind(t, validateCreate(p), ErrInvalidIntervalLength)
}

func requireKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	kind, ok := KindOf(err)
	if !ok {
		t.Fatalf("expected typed error %s, got %v", want, err)
	}
	if kind != want {
		t.Fatalf("got error kind %s, want %s", kind, want)
	}
}
