package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/mailer-backend/internal/service"
)

func TestTemplateService_Render(t *testing.T) {
	ts := service.NewTemplateService()

	c, err := ts.Compile("News for {{ list_name }}", "<p>{{ campaign_name }} to {{ email }}</p>")
	require.NoError(t, err)

	subject, html := c.Render(service.MergeData{Email: "ann@firm.com", ListName: "VIP", CampaignName: "Launch"})
	assert.Equal(t, "News for VIP", subject)
	assert.Equal(t, "<p>Launch to ann@firm.com</p>", html)
}

func TestTemplateService_BrokenTagsFallBackToRaw(t *testing.T) {
	ts := service.NewTemplateService()

	c, err := ts.Compile("Hi {{ email }}", "<p>{% if email %}unterminated</p>")
	require.Error(t, err)
	require.NotNil(t, c)

	subject, html := c.Render(service.MergeData{Email: "ann@firm.com"})
	assert.Equal(t, "Hi ann@firm.com", subject)
	assert.Equal(t, "<p>{% if email %}unterminated</p>", html)
}

func TestValidVolume(t *testing.T) {
	for _, v := range service.BatchVolumes {
		assert.True(t, service.ValidVolume(v))
	}
	assert.False(t, service.ValidVolume(0))
	assert.False(t, service.ValidVolume(12000))
}
