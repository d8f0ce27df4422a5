package browser

import (
	"reflect"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
)

func fnPtr(v any) uintptr { return reflect.ValueOf(v).Pointer() }

func TestSelOptsDistinguishesXPath(t *testing.T) {
	assert.Equal(t, fnPtr(chromedp.ByQuery), fnPtr(selOpts(SelCourseBox)))
	assert.Equal(t, fnPtr(chromedp.BySearch), fnPtr(selOpts(SelResubmitButton)))
	assert.Equal(t, fnPtr(chromedp.BySearch), fnPtr(selOpts(`//div[@id="x"]`)))
}
