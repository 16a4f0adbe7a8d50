package irc

import "mvdan.cc/xurls/v2"

var urlPattern = xurls.Strict()

// extractURLs pulls every URL out of a chat line, populating the URLs
// field on MessageEvent/NoticeEvent (a feature the distilled spec omits
// but the original client surfaces for link previews).
func extractURLs(content string) []string {
	matches := urlPattern.FindAllString(content, -1)
	if len(matches) == 0 {
		return nil
	}
	return matches
}
