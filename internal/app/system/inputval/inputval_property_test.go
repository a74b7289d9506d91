package inputval

import (
	"strconv"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

var (
	labelGen = rapid.StringMatching(`[a-z0-9]{1,12}`)
	tldGen   = rapid.StringMatching(`[a-z]{2,6}`)
)

func TestIsValidEmail_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		local := labelGen.Draw(rt, "local")
		domain := labelGen.Draw(rt, "domain")
		tld := tldGen.Draw(rt, "tld")

		valid := local + "@" + domain + "." + tld
		if !IsValidEmail(valid) {
			rt.Fatalf("expected %q to be valid", valid)
		}
		if IsValidEmail(local + domain + "." + tld) {
			rt.Fatalf("expected address without @ to be invalid")
		}
		if IsValidEmail(local + "@" + domain + tld) {
			rt.Fatalf("expected address without domain dot to be invalid")
		}
	})
}

func TestIsValidPhone_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		first := rapid.IntRange(6, 9).Draw(rt, "first")
		rest := rapid.StringMatching(`[0-9]{9}`).Draw(rt, "rest")
		phone := strconv.Itoa(first) + rest

		if !IsValidPhone(phone) {
			rt.Fatalf("expected %q to be valid", phone)
		}
		if IsValidPhone(phone[:9]) {
			rt.Fatalf("expected 9-digit %q to be invalid", phone[:9])
		}
		bad := strconv.Itoa(rapid.IntRange(0, 5).Draw(rt, "badFirst")) + rest
		if IsValidPhone(bad) {
			rt.Fatalf("expected %q to be invalid", bad)
		}
	})
}

func TestIsValidAge_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(-1000, 1000).Draw(rt, "age")
		want := n >= 1 && n <= 119
		if got := IsValidAge(strconv.Itoa(n)); got != want {
			rt.Fatalf("IsValidAge(%d) = %v, want %v", n, got, want)
		}
	})
}

func TestIsValidHandle_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := rapid.StringMatching(`[a-zA-Z0-9_-]{1,39}`).Draw(rt, "handle")
		if !IsValidHandle(h) {
			rt.Fatalf("expected %q to be valid", h)
		}
		if IsValidHandle(h + "/" + h) {
			rt.Fatalf("expected path-like handle to be invalid")
		}
		if url := ProfileURL(ProfileGithub, h); !strings.HasSuffix(url, "/"+h) {
			rt.Fatalf("ProfileURL lost the handle: %q", url)
		}
	})
}
