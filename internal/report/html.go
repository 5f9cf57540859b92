package report

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// reportCSS is inlined into every rendered document so the HTML and PDF
// outputs need no external asset directory.
const reportCSS = `body{font-family:Georgia,'Times New Roman',serif;color:#1c1917;line-height:1.5;margin:0;padding:1rem;}
.report-wrap{max-width:900px;margin:0 auto;}
.report-html h1{font-size:1.6rem;border-bottom:2px solid #92400e;padding-bottom:0.3rem;}
.report-html h2{font-size:1.2rem;margin-top:1.6rem;}
.report-html h3{font-size:1rem;margin-top:1.2rem;}
.report-html table{width:100%;border-collapse:collapse;font-size:0.85rem;}
.report-html th,.report-html td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}
.report-html thead th{background:#f1f5f9;font-weight:700;}
.report-html blockquote{border-left:3px solid #fcd34d;background:#fffbeb;margin:0.8rem 0;padding:0.5rem 0.8rem;color:#78350f;}
.report-html code{background:#f5f5f4;padding:0.1rem 0.3rem;font-size:0.85em;}`

// RenderHTML converts the report markdown into a standalone HTML document.
func RenderHTML(markdown string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>Dossier Completeness Report</title>" +
		"<style>" + reportCSS + "\n" +
		"html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}\n" +
		"@media print{ @page{size:auto;margin:12mm;} body{padding:0;} .report-wrap{max-width:none;} }" +
		"</style></head><body>" +
		"<div class='report-wrap'><div class='report-html'>" + content.String() + "</div></div>" +
		"</body></html>", nil
}
