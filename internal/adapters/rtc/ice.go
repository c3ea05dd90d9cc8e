package rtc

import "github.com/pion/webrtc/v4"

var DefaultICEURLs = []string{"stun:stun.l.google.com:19302"}

// ICEServers builds the server list handed to browsers before they create
// their peer connections. Credentials apply to every URL.
func ICEServers(urls []string, username, credential string) []webrtc.ICEServer {
	if len(urls) == 0 {
		urls = DefaultICEURLs
	}
	server := webrtc.ICEServer{URLs: urls}
	if username != "" {
		server.Username = username
		server.Credential = credential
	}
	return []webrtc.ICEServer{server}
}

// Configuration is the peer connection configuration clients should use.
func Configuration(servers []webrtc.ICEServer) webrtc.Configuration {
	return webrtc.Configuration{ICEServers: servers}
}
