package education

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalized_FallsBackToEnglish(t *testing.T) {
	c := &Content{
		Category: CategoryNutrition,
		TitleEn:  "Eat less salt",
		TitleFil: "Bawasan ang asin",
		BodyEn:   "Sodium raises blood pressure.",
		BodyFil:  "  ",
	}

	fil := c.Localized(LanguageFilipino)
	assert.Equal(t, "Bawasan ang asin", fil.Title)
	assert.Equal(t, "Sodium raises blood pressure.", fil.Body)
	assert.Equal(t, LanguageFilipino, fil.Language)

	en := c.Localized(LanguageEnglish)
	assert.Equal(t, "Eat less salt", en.Title)
}

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, LanguageFilipino, ParseLanguage("FIL"))
	assert.Equal(t, LanguageFilipino, ParseLanguage("tl"))
	assert.Equal(t, LanguageEnglish, ParseLanguage(""))
	assert.Equal(t, LanguageEnglish, ParseLanguage("de"))
}

func TestPublishToggle(t *testing.T) {
	c := &Content{}
	c.Publish()
	assert.True(t, c.IsPublished)
	assert.NotNil(t, c.PublishedAt)
	c.Unpublish()
	assert.False(t, c.IsPublished)
}
