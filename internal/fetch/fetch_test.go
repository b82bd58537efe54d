package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"

	"github.com/sells-group/contact-enricher/internal/fetch/mocks"
	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/resilience"
	"github.com/sells-group/contact-enricher/pkg/jina"
	jinamocks "github.com/sells-group/contact-enricher/pkg/jina/mocks"
)

const filler = "우리 교회는 지역 사회와 함께 예배하고 봉사하는 공동체입니다. 누구나 환영합니다."

func page(title, body string) string {
	return fmt.Sprintf(`<html><head><title>%s</title></head><body>%s</body></html>`, title, body)
}

func TestParseHTML(t *testing.T) {
	html := `<html><head><title> Test  Church </title><script>var tel="02-9999-9999";</script></head>
<body><div>전화: 02-1234-5678</div><p>팩스: 02-1234-5679</p>
<a href="/contact#top">오시는 길</a>
<a href="tel:02-1234-5678">전화걸기</a>
<a href="mailto:info@test.or.kr?subject=hi">메일</a>
<a href="javascript:void(0)">x</a>
<a href="#">top</a>
<a href="/contact"><img alt="연락처"></a>
</body></html>`

	doc, err := ParseHTML("https://test.or.kr/index.html", []byte(html))
	require.NoError(t, err)
	assert.Equal(t, "Test Church", doc.Title)
	assert.Contains(t, doc.Text, "전화: 02-1234-5678\n팩스: 02-1234-5679")
	assert.NotContains(t, doc.Text, "9999")
	assert.Equal(t, []model.Link{
		{URL: "https://test.or.kr/contact", Text: "오시는 길"},
		{URL: "tel:02-1234-5678", Text: "전화걸기"},
		{URL: "mailto:info@test.or.kr?subject=hi", Text: "메일"},
	}, doc.Links)
	assert.Empty(t, doc.Redirect)
}

func TestParseHTML_Redirect(t *testing.T) {
	doc, err := ParseHTML("http://old.kr/", []byte(`<html><head><meta http-equiv="Refresh" content="0; URL=/main.html"></head></html>`))
	require.NoError(t, err)
	assert.Equal(t, "http://old.kr/main.html", doc.Redirect)

	doc, err = ParseHTML("http://old.kr/", []byte(`<html><frameset><frame src="http://old.kr/home.asp"></frameset></html>`))
	require.NoError(t, err)
	assert.Equal(t, "http://old.kr/home.asp", doc.Redirect)
}

func TestDecode_EUCKR(t *testing.T) {
	encoded, err := korean.EUCKR.NewEncoder().Bytes([]byte("<p>대표전화</p>"))
	require.NoError(t, err)

	assert.Equal(t, "<p>대표전화</p>", string(Decode("text/html; charset=euc-kr", encoded)))
	withMeta := append([]byte(`<meta charset="euc-kr">`), encoded...)
	assert.Contains(t, string(Decode("text/html", withMeta)), "대표전화")
	assert.Equal(t, "plain", string(Decode("text/html; charset=utf-8", []byte("plain"))))
}

func TestDetectBlock(t *testing.T) {
	cf := http.Header{}
	cf.Set("cf-ray", "abc")
	assert.Equal(t, ReasonBlocked, DetectBlock(403, cf, nil))
	assert.Equal(t, ReasonBlocked, DetectBlock(200, http.Header{}, []byte("Checking your browser before accessing")))
	assert.Equal(t, ReasonJSShell, DetectBlock(200, http.Header{}, []byte(`<noscript>Enable JavaScript</noscript><div id="app"></div>`)))
	assert.Empty(t, DetectBlock(200, http.Header{}, []byte(page("ok", filler))))
	assert.Empty(t, DetectBlock(403, http.Header{}, nil))
}

func TestIsNotFoundTitle(t *testing.T) {
	assert.True(t, IsNotFoundTitle("404 Not Found"))
	assert.True(t, IsNotFoundTitle("페이지를 찾을 수 없습니다"))
	assert.False(t, IsNotFoundTitle("Test Church"))
	assert.False(t, IsNotFoundTitle(""))
}

func TestNormalize(t *testing.T) {
	got, err := Normalize(" test.or.kr/about ")
	require.NoError(t, err)
	assert.Equal(t, "http://test.or.kr/about", got)

	for _, bad := range []string{"", "ftp://x.kr", "http://", "http://%zz"} {
		_, err := Normalize(bad)
		assert.ErrorIs(t, err, ErrInvalidURL, bad)
	}
}

func TestHTTPFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, page("Test Church", `<div>Tel: 02 1234 5678</div><p>`+filler+`</p><a href="/contact">연락처</a>`))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/soft404", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, page("404 Not Found", filler))
	})
	mux.HandleFunc("/short", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, page("Short", "hi"))
	})
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<html><head><meta http-equiv="refresh" content="0;url=/"></head><body></body></html>`)
	})
	mux.HandleFunc("/challenge", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, page("Just a moment", "Checking your browser "+filler))
	})
	mux.HandleFunc("/euckr", func(w http.ResponseWriter, _ *http.Request) {
		body, _ := korean.EUCKR.NewEncoder().Bytes([]byte(page("교회", "대표전화 02-1234-5678 "+filler)))
		w.Header().Set("Content-Type", "text/html; charset=euc-kr")
		_, _ = w.Write(body)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewHTTPFetcher(Options{Timeout: 2 * time.Second}, nil)
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		p, err := f.Fetch(ctx, srv.URL+"/")
		require.NoError(t, err)
		assert.True(t, p.Accessible)
		assert.Equal(t, "Test Church", p.Title)
		assert.Contains(t, p.RawText, "Tel: 02 1234 5678")
		assert.Equal(t, "http", p.Source)
		assert.Equal(t, 200, p.StatusCode)
		require.Len(t, p.Links, 1)
		assert.Equal(t, srv.URL+"/contact", p.Links[0].URL)
	})

	tests := []struct {
		path   string
		reason string
	}{
		{"/missing", "http_status 404"},
		{"/soft404", ReasonNotFound},
		{"/short", ReasonDegenerate},
		{"/challenge", ReasonBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p, err := f.Fetch(ctx, srv.URL+tt.path)
			require.NoError(t, err)
			assert.False(t, p.Accessible)
			assert.Equal(t, tt.reason, p.Reason)
		})
	}

	t.Run("follows refresh", func(t *testing.T) {
		p, err := f.Fetch(ctx, srv.URL+"/refresh")
		require.NoError(t, err)
		assert.True(t, p.Accessible)
		assert.Equal(t, "Test Church", p.Title)
	})

	t.Run("decodes euc-kr", func(t *testing.T) {
		p, err := f.Fetch(ctx, srv.URL+"/euckr")
		require.NoError(t, err)
		assert.True(t, p.Accessible)
		assert.Contains(t, p.RawText, "대표전화 02-1234-5678")
	})

	t.Run("malformed url", func(t *testing.T) {
		_, err := f.Fetch(ctx, "ftp://nope")
		require.Error(t, err)
	})
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	p, err := NewHTTPFetcher(Options{Timeout: 30 * time.Millisecond}, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.False(t, p.Accessible)
	assert.Equal(t, ReasonTimeout, p.Reason)
}

func TestHTTPFetcher_BreakerOpensPerHost(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	breakers := resilience.NewBreakers(resilience.BreakerConfig{Threshold: 2, Cooldown: time.Hour})
	f := NewHTTPFetcher(Options{Timeout: time.Second}, breakers)

	for range 2 {
		p, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "http_status 500", p.Reason)
	}
	p, err := f.Fetch(context.Background(), srv.URL+"/contact")
	require.NoError(t, err)
	assert.Equal(t, ReasonBreakerOpen, p.Reason)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, breakers.Open(), 1)
}

func TestBrowserFetcher(t *testing.T) {
	render := func(_ context.Context, url string, _ time.Duration) (string, error) {
		if strings.Contains(url, "broken") {
			return "", errors.New("chrome crashed")
		}
		return page("Rendered", "<div>Fax. 031-123-4567</div><p>"+filler+"</p>"), nil
	}
	b := NewBrowserFetcher(Options{}, 2, WithRenderer(render))

	p, err := b.Fetch(context.Background(), "https://spa.kr")
	require.NoError(t, err)
	assert.True(t, p.Accessible)
	assert.Equal(t, "browser", p.Source)
	assert.Contains(t, p.RawText, "031-123-4567")

	p, err = b.Fetch(context.Background(), "https://broken.kr")
	require.NoError(t, err)
	assert.False(t, p.Accessible)
	assert.Equal(t, ReasonUnreachable, p.Reason)
}

func TestBrowserFetcher_CancelledWhileWaiting(t *testing.T) {
	block := make(chan struct{})
	render := func(context.Context, string, time.Duration) (string, error) {
		<-block
		return "", nil
	}
	b := NewBrowserFetcher(Options{}, 1, WithRenderer(render))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = b.Fetch(context.Background(), "https://a.kr")
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, err := b.Fetch(ctx, "https://b.kr")
	require.NoError(t, err)
	assert.Equal(t, ReasonCancelled, p.Reason)

	close(block)
	<-done
}

func TestJinaFetcher(t *testing.T) {
	client := jinamocks.NewMockClient(t)
	content := "# Test Church\n\n" + filler + "\n\n[오시는 길](/contact) [전화](tel:0212345678) ![logo](/logo.png)"
	client.On("Read", mock.Anything, "https://test.or.kr").Return(&jina.ReadResponse{
		Data: jina.ReadData{Title: "Test Church", Content: content},
	}, nil).Once()
	client.On("Read", mock.Anything, "https://gone.kr").Return(nil, &jina.StatusError{StatusCode: 451}).Once()

	j := NewJinaFetcher(client, Options{})
	p, err := j.Fetch(context.Background(), "https://test.or.kr")
	require.NoError(t, err)
	assert.True(t, p.Accessible)
	assert.Equal(t, "jina", p.Source)
	assert.Equal(t, []model.Link{
		{URL: "https://test.or.kr/contact", Text: "오시는 길"},
		{URL: "tel:0212345678", Text: "전화"},
		{URL: "https://test.or.kr/logo.png", Text: "logo"},
	}, p.Links)

	p, err = j.Fetch(context.Background(), "https://gone.kr")
	require.NoError(t, err)
	assert.False(t, p.Accessible)
	assert.Equal(t, 451, p.StatusCode)
}

func TestChain(t *testing.T) {
	ok := &model.Page{URL: "https://a.kr", Accessible: true, Source: "browser"}

	t.Run("falls back on js shell", func(t *testing.T) {
		first, second := mocks.NewMockFetcher(t), mocks.NewMockFetcher(t)
		first.On("Fetch", mock.Anything, "https://a.kr").Return(model.Inaccessible("https://a.kr", ReasonJSShell), nil).Once()
		second.On("Fetch", mock.Anything, "https://a.kr").Return(ok, nil).Once()

		p, err := NewChain(Named{"http", first}, Named{"browser", second}).Fetch(context.Background(), "https://a.kr")
		require.NoError(t, err)
		assert.Same(t, ok, p)
	})

	t.Run("stops on not found", func(t *testing.T) {
		first, second := mocks.NewMockFetcher(t), mocks.NewMockFetcher(t)
		miss := model.Inaccessible("https://a.kr", ReasonNotFound)
		first.On("Fetch", mock.Anything, "https://a.kr").Return(miss, nil).Once()

		p, err := NewChain(Named{"http", first}, Named{"browser", second}).Fetch(context.Background(), "https://a.kr")
		require.NoError(t, err)
		assert.Same(t, miss, p)
	})

	t.Run("returns last failure", func(t *testing.T) {
		first, second := mocks.NewMockFetcher(t), mocks.NewMockFetcher(t)
		first.On("Fetch", mock.Anything, "https://a.kr").Return(model.Inaccessible("https://a.kr", ReasonBlocked), nil).Once()
		second.On("Fetch", mock.Anything, "https://a.kr").Return(model.Inaccessible("https://a.kr", ReasonDegenerate), nil).Once()

		p, err := NewChain(Named{"http", first}, Named{"jina", second}).Fetch(context.Background(), "https://a.kr")
		require.NoError(t, err)
		assert.Equal(t, ReasonDegenerate, p.Reason)
	})

	t.Run("malformed url", func(t *testing.T) {
		first := mocks.NewMockFetcher(t)
		first.On("Fetch", mock.Anything, "bad").Return(nil, ErrInvalidURL).Once()

		_, err := NewChain(Named{"http", first}).Fetch(context.Background(), "bad")
		require.ErrorIs(t, err, ErrInvalidURL)
	})
}

func TestFetchAll(t *testing.T) {
	f := mocks.NewMockFetcher(t)
	f.On("Fetch", mock.Anything, mock.AnythingOfType("string")).Return(func(_ context.Context, url string) (*model.Page, error) {
		if url == "bad" {
			return nil, ErrInvalidURL
		}
		return &model.Page{URL: url, Accessible: true}, nil
	}).Times(3)

	pages := FetchAll(context.Background(), f, []string{"https://a.kr", "bad", "https://c.kr"}, 2)
	require.Len(t, pages, 3)
	assert.Equal(t, "https://a.kr", pages[0].URL)
	assert.False(t, pages[1].Accessible)
	assert.Equal(t, "https://c.kr", pages[2].URL)
}
