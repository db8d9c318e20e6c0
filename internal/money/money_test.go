package money_test

import (
	"testing"

	"github.com/mchalloran/backend-pos/internal/money"
)

func TestScaleRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount  money.Cents
		rateBps int64
		want    money.Cents
	}{
		{10000, 825, 825},
		{100, 825, 8},     // 8.25 -> 8
		{1000, 825, 83},   // 82.5 -> 83
		{999, 825, 82},    // 82.41 -> 82
		{0, 825, 0},
		{10000, 0, 0},
		{-10000, 825, -825},
	}
	for _, tc := range cases {
		if got := money.Scale(tc.amount, tc.rateBps); got != tc.want {
			t.Fatalf("Scale(%d, %d) = %d, want %d", tc.amount, tc.rateBps, got, tc.want)
		}
	}
}

func TestInverseScale(t *testing.T) {
	if got := money.InverseScale(5000, 825); got != 4619 {
		t.Fatalf("InverseScale(5000, 825) = %d, want 4619", got)
	}
	if got := money.InverseScale(10825, 825); got != 10000 {
		t.Fatalf("InverseScale(10825, 825) = %d, want 10000", got)
	}
	if got := money.InverseScale(-10825, 825); got != -10000 {
		t.Fatalf("InverseScale(-10825, 825) = %d, want -10000", got)
	}
}

func TestInverseScaleRoundTripWithinOneCent(t *testing.T) {
	rates := []int64{0, 1, 250, 500, 825, 1000, 1333, 2000}
	amounts := []money.Cents{1, 99, 100, 4999, 5000, 10825, 123456}
	for _, rate := range rates {
		for _, gross := range amounts {
			net := money.InverseScale(gross, rate)
			back := net + money.Scale(net, rate)
			diff := back - gross
			if diff < -1 || diff > 1 {
				t.Fatalf("round trip rate=%d gross=%d net=%d back=%d", rate, gross, net, back)
			}
		}
	}
}

func TestFormat(t *testing.T) {
	cases := map[money.Cents]string{
		0:      "0.00",
		5:      "0.05",
		10825:  "108.25",
		-175:   "-1.75",
		-10050: "-100.50",
	}
	for in, want := range cases {
		if got := money.Format(in); got != want {
			t.Fatalf("Format(%d) = %q, want %q", in, got, want)
		}
	}
}
