package drive

// ResolveWebURL returns the browser link for a Drive file, preferring the
// webViewLink reported by the API.
func ResolveWebURL(fileID, webViewLink string) string {
	if webViewLink != "" {
		return webViewLink
	}
	if fileID == "" {
		return ""
	}
	return "https://drive.google.com/file/d/" + fileID + "/view"
}
