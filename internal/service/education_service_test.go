package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/domain/education"
)

func TestEducation_PublishedOnlyAndFallback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pub, err := h.education.Create(ctx, h.doctor, &education.CreateContentCommand{
		Category: education.CategoryHeartHealth, TitleEn: "Know your blood pressure", TitleFil: "Alamin ang iyong presyon",
		BodyEn: "Check it regularly.", Publish: true,
	})
	require.NoError(t, err)
	_, err = h.education.Create(ctx, h.doctor, &education.CreateContentCommand{
		Category: education.CategoryNutrition, TitleEn: "Draft", BodyEn: "wip",
	})
	require.NoError(t, err)

	page, err := h.education.ListPublished(ctx, &education.ListContentQuery{}, education.LanguageFilipino)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Alamin ang iyong presyon", page.Items[0].Title)
	assert.Equal(t, "Check it regularly.", page.Items[0].Body, "blank Filipino body falls back to English")

	all, err := h.education.List(ctx, &education.ListContentQuery{})
	require.NoError(t, err)
	assert.Len(t, all.Contents, 2)

	for want := int64(1); want <= 2; want++ {
		v, err := h.education.View(ctx, pub.ID, education.LanguageEnglish)
		require.NoError(t, err)
		assert.Equal(t, want, v.ViewCount)
	}
}

func TestEducation_DraftNotViewable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c, err := h.education.Create(ctx, h.doctor, &education.CreateContentCommand{
		Category: education.CategoryExercise, TitleEn: "Walk daily", BodyEn: "30 minutes",
	})
	require.NoError(t, err)

	_, err = h.education.View(ctx, c.ID, education.LanguageEnglish)
	assert.ErrorIs(t, err, education.ErrContentNotFound)

	_, err = h.education.Publish(ctx, h.doctor, c.ID)
	require.NoError(t, err)
	_, err = h.education.View(ctx, c.ID, education.LanguageEnglish)
	assert.NoError(t, err)
}
