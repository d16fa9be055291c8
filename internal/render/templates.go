package render

import "html/template"

const storyTemplate = `<!doctype html>
<html amp lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="canonical" href="{{.CanonicalURL}}">
<meta name="viewport" content="width=device-width,minimum-scale=1,initial-scale=1">
<style amp-boilerplate>body{-webkit-animation:-amp-start 8s steps(1,end) 0s 1 normal both;animation:-amp-start 8s steps(1,end) 0s 1 normal both}@keyframes -amp-start{from{visibility:hidden}to{visibility:visible}}</style><noscript><style amp-boilerplate>body{-webkit-animation:none;animation:none}</style></noscript>
<script async src="https://cdn.ampproject.org/v0.js"></script>
<script async custom-element="amp-story" src="https://cdn.ampproject.org/v0/amp-story-1.0.js"></script>
<script async custom-element="amp-video" src="https://cdn.ampproject.org/v0/amp-video-0.1.js"></script>
{{- if .CustomCSS}}
<style amp-custom>{{.CustomCSS}}</style>
{{- end}}
</head>
<body>
<amp-story standalone title="{{.Title}}" publisher="{{.Publisher}}" publisher-logo-src="{{.PublisherLogoSrc}}" poster-portrait-src="{{.PosterPortraitSrc}}"
{{- if .PosterSquareSrc}} poster-square-src="{{.PosterSquareSrc}}"{{end}}
{{- if .PosterLandscapeSrc}} poster-landscape-src="{{.PosterLandscapeSrc}}"{{end}}>
{{range .Pages}}{{.}}
{{end}}</amp-story>
</body>
</html>
`

const linkTemplate = `<a href="{{.URL}}" class="webstory-link">
<div class="webstory-poster" style="background-image: url({{.PosterURL}});">
<div class="title">{{.Title}}</div>
</div>
</a>`

const embedTemplate = `<amp-story-player>
<a href="{{.URL}}">
{{- if .PosterURL}}<img src="{{.PosterURL}}" width="360" height="600" loading="lazy" data-amp-story-player-poster-img>{{end -}}
{{.Title}}</a>
</amp-story-player>`

var (
	storyTmpl = template.Must(template.New("story").Parse(storyTemplate))
	linkTmpl  = template.Must(template.New("link").Parse(linkTemplate))
	embedTmpl = template.Must(template.New("embed").Parse(embedTemplate))
)
