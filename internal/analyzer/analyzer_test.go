package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountPhrase(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		phrase string
		want   int
	}{
		{"case insensitive", "The Economy is growing the economy", "economy", 2},
		{"whole words only", "economyboom", "economy", 0},
		{"multi word", "Latin America trade and latin america growth", "Latin America", 2},
		{"multi word split", "Latin trade America", "Latin America", 0},
		{"phrase longer than text", "economy", "economy of scale", 0},
		{"empty phrase", "anything at all", "   ", 0},
		{"empty text", "", "economy", 0},
		{"extra whitespace", "  economy\n\teconomy  ", "economy", 2},
		{"overlapping", "ha ha ha", "ha ha", 2},
		{"unicode folding", "ECONOMÍA y economía", "Economía", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountPhrase(tt.text, tt.phrase))
		})
	}
}

func TestContainsMoney(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Prices rose to $1,200.50 today", true},
		{"I have 500 dollars", true},
		{"There were 500 people", false},
		{"A deal worth 3,000 USD was signed", true},
		{"Spent $20 on lunch", true},
		{"It cost 12 Dollars", false},
		{"500 DOLLARS", false},
		{"500 usd", false},
		{"The $ sign alone", false},
		{"Dollars are scarce", false},
		{"1999 was a year", false},
		{"500 USDC tokens", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsMoney(tt.text))
		})
	}
}

func TestAnalyze(t *testing.T) {
	res := Analyze("Economy shrinks", "The economy lost $4.5 in value", "economy")
	assert.Equal(t, 2, res.PhraseCount)
	assert.True(t, res.ContainsMoney)

	res = Analyze("Weather report", "Sunny with 30 degrees", "economy")
	assert.Equal(t, 0, res.PhraseCount)
	assert.False(t, res.ContainsMoney)
}

func TestAnalyze_MoneyAcrossFields(t *testing.T) {
	// title and description are joined with a space, so a number at the end
	// of the title and a currency word at the start of the description match
	res := Analyze("Budget of 500", "dollars was approved", "budget")
	assert.True(t, res.ContainsMoney)
	assert.Equal(t, 1, res.PhraseCount)
}

func TestMoneySentences(t *testing.T) {
	text := "Inflation cooled. Bread now costs $1.50 in Lima! Nobody knows why? Exports hit 200 USD per ton"
	got := MoneySentences(text)
	assert.Equal(t, []string{
		"Bread now costs $1.50 in Lima!",
		"Exports hit 200 USD per ton",
	}, got)

	assert.Empty(t, MoneySentences("No amounts here. None at all."))
	assert.Nil(t, MoneySentences(""))
}
