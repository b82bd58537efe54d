package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/pkg/jina"
	jinamocks "github.com/sells-group/contact-enricher/pkg/jina/mocks"
)

func TestJinaSearcher_Search(t *testing.T) {
	client := jinamocks.NewMockClient(t)
	client.On("Search", mock.Anything, "Test Church 홈페이지").Return(&jina.SearchResponse{
		Data: []jina.SearchResult{
			{URL: "https://test.or.kr"},
			{URL: ""},
			{URL: "https://test.or.kr"},
			{URL: "https://blog.naver.com/testchurch"},
			{URL: "https://news.naver.com/x"},
		},
	}, nil).Once()

	s := NewJinaSearcher(client, time.Second, 2)
	urls, err := s.Search(context.Background(), "Test Church 홈페이지")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://test.or.kr", "https://blog.naver.com/testchurch"}, urls)
}

func TestJinaSearcher_Error(t *testing.T) {
	client := jinamocks.NewMockClient(t)
	client.On("Search", mock.Anything, "q").Return(nil, errors.New("jina: status 403")).Once()

	_, err := NewJinaSearcher(client, time.Second, 0).Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search: query")
}

func TestJinaSearcher_TimeoutIsEmpty(t *testing.T) {
	client := jinamocks.NewMockClient(t)
	client.On("Search", mock.Anything, "slow").Return(func(ctx context.Context, _ string) (*jina.SearchResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}).Once()

	urls, err := NewJinaSearcher(client, 20*time.Millisecond, 0).Search(context.Background(), "slow")
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestFilter_Pick(t *testing.T) {
	f := NewFilter(DefaultRules())

	tests := []struct {
		name        string
		urls        []string
		allowSocial bool
		want        Candidate
		ok          bool
	}{
		{
			name: "skips excluded",
			urls: []string{"https://search.naver.com/x", "https://ko.wikipedia.org/wiki/a", "https://www.test.or.kr/"},
			want: Candidate{URL: "https://www.test.or.kr/", Type: model.HomepageOfficial, Multiplier: 1},
			ok:   true,
		},
		{
			name:        "official beats earlier social",
			urls:        []string{"https://blog.naver.com/a", "https://test.or.kr"},
			allowSocial: true,
			want:        Candidate{URL: "https://test.or.kr", Type: model.HomepageOfficial, Multiplier: 1},
			ok:          true,
		},
		{
			name:        "social for small org",
			urls:        []string{"https://news.naver.com/x", "https://blog.naver.com/a", "https://band.us/b"},
			allowSocial: true,
			want:        Candidate{URL: "https://blog.naver.com/a", Type: model.HomepageSocial, Multiplier: 0.7},
			ok:          true,
		},
		{
			name: "social rejected otherwise",
			urls: []string{"https://blog.naver.com/a", "https://www.facebook.com/b"},
		},
		{
			name: "invalid urls skipped",
			urls: []string{"not a url", "ftp://files.kr", "/relative"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := f.Pick(tt.urls, tt.allowSocial)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter_Allowed(t *testing.T) {
	f := NewFilter(DefaultRules())
	assert.True(t, f.Allowed("https://test.or.kr/contact"))
	assert.False(t, f.Allowed("https://blog.naver.com/a"))
	assert.False(t, f.Allowed("https://www.google.com/search?q=x"))
	assert.False(t, f.Allowed("mailto:a@b.kr"))
}

func TestRules_IsSmallOrg(t *testing.T) {
	r := DefaultRules()
	assert.True(t, r.IsSmallOrg("Test Church", ""))
	assert.True(t, r.IsSmallOrg("한빛", "학원"))
	assert.True(t, r.IsSmallOrg("서울치과의원", ""))
	assert.False(t, r.IsSmallOrg("삼성전자", "제조업"))
	assert.True(t, r.IsSmallOrg("봉은", "사찰"))
	assert.False(t, r.IsSmallOrg("한국법무절차연구원", ""))
	assert.False(t, r.IsSmallOrg("에너지절약시민연대", ""))
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `
exclude:
  - portal.kr
social_multiplier: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"portal.kr"}, r.Exclude)
	assert.Equal(t, DefaultRules().Social, r.Social)
	assert.Equal(t, 0.5, r.SocialMultiplier)
	assert.NotEmpty(t, r.SmallOrgKeywords)

	f := NewFilter(r)
	got, ok := f.Pick([]string{"https://portal.kr/a", "https://naver.com"}, false)
	require.True(t, ok)
	assert.Equal(t, "https://naver.com", got.URL)
}

func TestLoadRules_Errors(t *testing.T) {
	r, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), r)

	_, err = LoadRules("/nonexistent/rules.yaml")
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("exclude: [unterminated"), 0o644))
	_, err = LoadRules(path)
	require.Error(t, err)
}
