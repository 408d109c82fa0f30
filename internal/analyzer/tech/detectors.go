package tech

import "strings"

// first returns the score of the first check that holds.
func first(checks ...check) int {
	for _, c := range checks {
		if c.ok() {
			return c.score
		}
	}
	return 0
}

type check struct {
	score int
	ok    func() bool
}

func when(score int, ok func() bool) check {
	return check{score: score, ok: ok}
}

var tailwindUtilities = []string{"flex", "grid", "mt-", "p-", "text-", "bg-", "rounded", "shadow"}

var detectors = []Detector{
	// frameworks
	{
		Name: "Next.js", Category: "Framework", Icon: "⚡",
		Globals: []string{"__NEXT_DATA__"},
		Detect: func(e *Env) int {
			return first(
				when(98, func() bool { return e.Global("__NEXT_DATA__") }),
				when(90, func() bool { return e.ScriptSrcContains("/_next/") }),
				when(85, func() bool { return e.ByID("__next") }),
			)
		},
	},
	{
		Name: "Nuxt.js", Category: "Framework", Icon: "💚",
		Globals: []string{"__NUXT__"},
		Detect: func(e *Env) int {
			return first(
				when(95, func() bool { return e.Global("__NUXT__") }),
				when(85, func() bool { return e.ByID("__nuxt") }),
			)
		},
	},
	{
		Name: "Gatsby", Category: "Framework", Icon: "🟣",
		Detect: func(e *Env) int {
			return first(
				when(92, func() bool { return e.ByID("___gatsby") }),
				when(80, func() bool { return e.ScriptSrcContains("/page-data/") }),
			)
		},
	},

	// libraries
	{
		Name: "React", Category: "Library", Icon: "⚛️",
		Globals: []string{"React", "__REACT_DEVTOOLS_GLOBAL_HOOK__"},
		Detect: func(e *Env) int {
			return first(
				when(95, func() bool { return e.Global("React") || e.Global("__REACT_DEVTOOLS_GLOBAL_HOOK__") }),
				when(90, func() bool { return e.Has("[data-reactroot]") }),
				when(85, func() bool { return e.Has("[data-reactid]") }),
			)
		},
	},
	{
		Name: "Vue.js", Category: "Library", Icon: "🟢",
		Globals: []string{"Vue", "__VUE__"},
		Detect: func(e *Env) int {
			return first(
				when(95, func() bool { return e.Global("Vue") || e.Global("__VUE__") }),
				when(88, func() bool { return e.Has("[data-v-]", "[data-v-app]") }),
				when(85, func() bool { return e.AttrPrefixInFirst(50, "data-v-") }),
			)
		},
	},
	{
		Name: "Angular", Category: "Framework", Icon: "🅰️",
		Globals: []string{"ng", "angular"},
		Detect: func(e *Env) int {
			return first(
				when(95, func() bool { return e.Global("ng") || e.Global("angular") }),
				when(90, func() bool { return e.Has("[ng-app]", "[ng-controller]") }),
				when(88, func() bool { return e.Has("app-root", "[_nghost]") }),
				when(85, func() bool { return e.AttrPrefixInFirst(50, "_ngcontent", "_nghost") }),
			)
		},
	},
	{
		Name: "jQuery", Category: "Library", Icon: "📜",
		Globals: []string{"jQuery", "$.fn.jquery"},
		Detect: func(e *Env) int {
			return first(
				when(95, func() bool { return e.Global("jQuery") || e.Global("$.fn.jquery") }),
				when(85, func() bool { return e.ScriptSrcContains("jquery") }),
			)
		},
	},

	// cms and platforms
	{
		Name: "WordPress", Category: "CMS", Icon: "📝",
		Globals: []string{"wp.customize"},
		Detect: func(e *Env) int {
			return first(
				when(95, func() bool { return e.Global("wp.customize") }),
				when(92, func() bool { return e.GeneratorContains("wordpress") }),
				when(90, func() bool { return e.ScriptSrcContains("/wp-content/") || e.ScriptSrcContains("/wp-includes/") }),
				when(88, func() bool { return e.LinkHrefContains("/wp-content/") }),
				when(85, func() bool { return e.Has(`link[rel="https://api.w.org/"]`) }),
			)
		},
	},
	{
		Name: "Shopify", Category: "E-commerce", Icon: "🛍️",
		Globals: []string{"Shopify", "Shopify.shop"},
		Detect: func(e *Env) int {
			return first(
				when(98, func() bool { return e.Global("Shopify") && e.Global("Shopify.shop") }),
				when(95, func() bool { return e.Global("Shopify") }),
				when(92, func() bool { return e.ScriptSrcContains("cdn.shopify.com") }),
				when(90, func() bool { return e.LinkHrefContains("cdn.shopify.com") }),
				when(90, func() bool { return e.Has(`meta[name="shopify-checkout-api-token"]`) }),
				when(80, func() bool { return e.Has(`link[href*="shopify"]`) }),
				when(82, func() bool { return e.Has("[data-shopify]", `input[name="checkout_url"]`) }),
			)
		},
	},
	{
		Name: "Shopify Theme", Category: "E-commerce", Icon: "🎨",
		Globals: []string{"Shopify.theme", "Shopify.theme.name"},
		Detect: func(e *Env) int {
			return first(
				when(95, func() bool { return e.Global("Shopify.theme.name") }),
				when(90, func() bool { return e.Global("Shopify.theme") }),
				when(80, func() bool { return e.Has("[data-section-type]", ".shopify-section") }),
			)
		},
		Variant: func(e *Env) string {
			return e.GlobalString("Shopify.theme.name")
		},
	},
	{
		Name: "Wix", Category: "CMS", Icon: "🔲",
		Globals: []string{"wixBiSession"},
		Detect: func(e *Env) int {
			return first(
				when(95, func() bool { return e.Global("wixBiSession") }),
				when(90, func() bool { return e.GeneratorContains("wix") }),
				when(88, func() bool { return e.ScriptSrcContains("static.wixstatic.com") }),
			)
		},
	},
	{
		Name: "Squarespace", Category: "CMS", Icon: "⬛",
		Globals: []string{"Static", "SQUARESPACE_CONTEXT"},
		Detect: func(e *Env) int {
			return first(
				when(95, func() bool { return e.Global("Static") && e.Global("SQUARESPACE_CONTEXT") }),
				when(92, func() bool { return e.GeneratorContains("squarespace") }),
			)
		},
	},
	{
		Name: "Webflow", Category: "CMS", Icon: "🌐",
		Detect: func(e *Env) int {
			return first(
				when(95, func() bool { return e.GeneratorContains("webflow") }),
				when(88, func() bool { return e.Has("html.w-mod-js") }),
				when(85, func() bool { return e.ScriptSrcContains("webflow") }),
			)
		},
	},

	// styling
	{
		Name: "Tailwind CSS", Category: "Styling", Icon: "🎨",
		Detect: func(e *Env) int {
			classes := e.BodyClass()
			markup := e.BodyHTML(5000)
			matches := 0
			for _, p := range tailwindUtilities {
				if strings.Contains(classes, p) ||
					strings.Contains(markup, `class="`+p) ||
					strings.Contains(markup, " "+p) {
					matches++
				}
			}
			switch {
			case matches >= 4:
				return 85
			case matches >= 2:
				return 60
			}
			return 0
		},
	},
	{
		Name: "Bootstrap", Category: "Styling", Icon: "🅱️",
		Detect: func(e *Env) int {
			return first(
				when(90, func() bool { return e.LinkHrefContains("bootstrap") }),
				when(88, func() bool { return e.ScriptSrcContains("bootstrap") }),
				when(75, func() bool { return e.Has(".container") && e.Has(".row") && e.Has("[class*='col-']") }),
			)
		},
	},

	// analytics
	{
		Name: "Google Analytics", Category: "Analytics", Icon: "📊",
		Globals: []string{"ga", "gtag", "dataLayer"},
		Detect: func(e *Env) int {
			return first(
				when(95, func() bool { return e.Global("ga") || e.Global("gtag") }),
				when(88, func() bool { return e.Global("dataLayer") }),
				when(90, func() bool {
					return e.ScriptSrcContains("google-analytics.com") || e.ScriptSrcContains("googletagmanager.com")
				}),
			)
		},
	},
	{
		Name: "Google Tag Manager", Category: "Analytics", Icon: "🏷️",
		Globals: []string{"google_tag_manager"},
		Detect: func(e *Env) int {
			return first(
				when(95, func() bool { return e.Global("google_tag_manager") }),
				when(90, func() bool { return e.ScriptSrcContains("googletagmanager.com/gtm") }),
				when(85, func() bool { return e.Has(`noscript iframe[src*="googletagmanager"]`) }),
			)
		},
	},
	{
		Name: "Facebook Pixel", Category: "Analytics", Icon: "📘",
		Globals: []string{"fbq"},
		Detect: func(e *Env) int {
			return first(
				when(95, func() bool { return e.Global("fbq") }),
				when(90, func() bool { return e.ScriptSrcContains("connect.facebook.net") }),
			)
		},
	},
	{
		Name: "Hotjar", Category: "Analytics", Icon: "🔥",
		Globals: []string{"hj", "hotjar"},
		Detect: func(e *Env) int {
			return first(
				when(95, func() bool { return e.Global("hj") || e.Global("hotjar") }),
				when(90, func() bool { return e.ScriptSrcContains("hotjar.com") }),
			)
		},
	},

	// hosting and cdn
	{
		Name: "Vercel", Category: "Hosting", Icon: "▲",
		Globals: []string{"__NEXT_DATA__"},
		Detect: func(e *Env) int {
			return first(
				when(90, func() bool { return e.Global("__NEXT_DATA__") && e.Has(`meta[name="x-vercel"]`) }),
				when(85, func() bool {
					return e.ScriptSrcContains("vercel-analytics") || e.ScriptSrcContains("va.vercel-scripts.com")
				}),
			)
		},
	},
	{
		Name: "Cloudflare", Category: "CDN", Icon: "☁️",
		Detect: func(e *Env) int {
			return first(
				when(80, func() bool { return e.ScriptSrcContains("cloudflare") }),
				when(90, func() bool { return e.Has("script[data-cf-beacon]") }),
			)
		},
	},

	// payments
	{
		Name: "Stripe", Category: "Payments", Icon: "💳",
		Globals: []string{"Stripe"},
		Detect: func(e *Env) int {
			return first(
				when(95, func() bool { return e.Global("Stripe") }),
				when(92, func() bool { return e.ScriptSrcContains("js.stripe.com") }),
			)
		},
	},
	{
		Name: "PayPal", Category: "Payments", Icon: "💰",
		Globals: []string{"paypal"},
		Detect: func(e *Env) int {
			return first(
				when(95, func() bool { return e.Global("paypal") }),
				when(92, func() bool { return e.ScriptSrcContains("paypal.com/sdk") }),
			)
		},
	},
}
