package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCEFRFor(t *testing.T) {
	cases := map[int]CEFRLevel{
		200: CEFRC1,
		180: CEFRC1,
		179: CEFRB2,
		160: CEFRB2,
		140: CEFRB1Plus,
		139: CEFRB1,
		110: CEFRB1,
		80:  CEFRA2Plus,
		60:  CEFRA2,
		59:  CEFRA1,
		40:  CEFRA1,
		39:  CEFRPreA1,
		0:   CEFRPreA1,
	}
	for score, want := range cases {
		require.Equal(t, want, CEFRFor(score), "score %d", score)
	}
}
