// internal/scraper/list_test.go
package scraper

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultItem(title, href, onclick string) string {
	return fmt.Sprintf(`<li class="result_li_box">
  <a class="list_font17" href="%s">%s</a>
  <p class="list_info_txt">자동차 등록 사실을 증명하는 서류를 발급합니다</p>
  <span class="division_">국토교통부</span>
  <span class="confi_">로그인 필요</span>
  <span class="badge_gray">발급</span>
  <a class="small_btn" href="#" onclick="%s">신청</a>
</li>`, href, title, onclick)
}

func listPage(items ...string) string {
	return `<html><body><ul class="result_list">` + strings.Join(items, "\n") + `</ul></body></html>`
}

func TestExtractList_EndToEnd(t *testing.T) {
	doc := mustDoc(t, listPage(resultItem("자동차 등록증 발급", "/service/123", "goUrlNewChk('100','A1','01')")))

	records := NewListExtractor(quietLogger()).ExtractList(doc)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "자동차 등록증 발급", rec.Name)
	assert.Equal(t, "100", rec.ServiceID)
	assert.Equal(t, "A1", rec.Category)
	assert.Equal(t, "01", rec.SequenceID)
	assert.Equal(t, "https://www.gov.kr/service/123", rec.Link)
	assert.Equal(t, "국토교통부", rec.Department)
	assert.Equal(t, "로그인 필요", rec.AuthRequired)
	assert.Equal(t, "발급", rec.Kind)
	assert.Equal(t, "신청", rec.LinkText)
}

func TestExtractList_ItemFailureIsolated(t *testing.T) {
	var items []string
	for i := 1; i <= 5; i++ {
		href := fmt.Sprintf("/service/%d", i)
		if i == 3 {
			href = "/service/%zz"
		}
		items = append(items, resultItem(fmt.Sprintf("민원 서비스 %d번", i), href, ""))
	}

	records := NewListExtractor(quietLogger()).ExtractList(mustDoc(t, listPage(items...)))
	require.Len(t, records, 4)
	for _, rec := range records {
		assert.NotEqual(t, "민원 서비스 3번", rec.Name)
	}
}

func TestExtractList_Defaults(t *testing.T) {
	doc := mustDoc(t, `<ul><li class="result_li_box"><a class="list_font17" href="/x">주민등록표 등본 발급</a></li></ul>`)

	records := NewListExtractor(quietLogger()).ExtractList(doc)
	require.Len(t, records, 1)
	assert.Equal(t, DefaultDescription, records[0].Description)
	assert.Equal(t, DefaultDepartment, records[0].Department)
	assert.Equal(t, DefaultButton, records[0].LinkText)
	assert.Equal(t, "", records[0].ServiceID)
}

func TestExtractList_NoItems(t *testing.T) {
	records := NewListExtractor(quietLogger()).ExtractList(mustDoc(t, `<html><body><p>검색 결과 없음</p></body></html>`))
	assert.Empty(t, records)
}

func TestLastPage(t *testing.T) {
	tests := []struct {
		name string
		html string
		want int
	}{
		{
			name: "total count",
			html: `<div class="new_h20">총 <em class="font_eb193a">95</em>건</div>`,
			want: 10,
		},
		{
			name: "total count with separator",
			html: `<div class="new_h20"><em class="font_eb193a">11,501</em></div>`,
			want: 1151,
		},
		{
			name: "last page control",
			html: `<div class="pagination_box"><ul><li class="page_last"><a href="#" onclick="applySetPage('1151.0')">끝</a></li></ul></div>`,
			want: 1151,
		},
		{
			name: "highest page link",
			html: `<ul><li class="pageList"><a>1</a></li><li class="pageList"><a>2</a></li><li class="pageList"><a>7</a></li></ul>`,
			want: 7,
		},
		{
			name: "nothing",
			html: `<p>empty</p>`,
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LastPage(mustDoc(t, tt.html)))
		})
	}
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "https://www.gov.kr/search/applyMw?Mcode=11166&pageIndex=3",
		PageURL("https://www.gov.kr/search/applyMw?Mcode=11166", 3))
	assert.Equal(t, "https://www.gov.kr/search/applyMw?Mcode=11166&pageIndex=4",
		PageURL("https://www.gov.kr/search/applyMw?Mcode=11166&pageIndex=1", 4))
	assert.Equal(t, "https://www.gov.kr/search?pageIndex=2", PageURL("https://www.gov.kr/search", 2))
}

func TestResolveLink(t *testing.T) {
	le := NewListExtractor(quietLogger())

	tests := []struct {
		href    string
		want    string
		wantErr bool
	}{
		{href: "/service/123", want: "https://www.gov.kr/service/123"},
		{href: "https://www.hometax.go.kr/x", want: "https://www.hometax.go.kr/x"},
		{href: "javascript:void(0)", want: ""},
		{href: "#", want: ""},
		{href: "/bad/%zz", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			got, err := le.ResolveLink(tt.href)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithQueryParam(t *testing.T) {
	got, err := WithQueryParam(DefaultBaseURL, "deptIncCd", "1352000")
	require.NoError(t, err)
	assert.Contains(t, got, "deptIncCd=1352000")
	assert.Contains(t, got, "Mcode=11166")
}
