// Package server serves the built-in collaborative editor page, a single
// embedded HTML document wired to the WebSocket protocol.
package server

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// EditorPageHandler serves the collaborative notepad page. It backs both the
// root route and /room/{roomName}; in the latter case the page reads the room
// name from the URL and joins it directly.
func EditorPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>CollabPad</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; max-width: 800px; }
        #editor {
            width: 100%;
            height: 400px;
            padding: 10px;
            box-sizing: border-box;
            font-family: monospace;
            display: none;
        }
        input[type="text"] {
            width: 250px;
            padding: 5px;
            margin-right: 10px;
        }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status {
            margin: 10px 0;
            padding: 5px;
            border-radius: 3px;
            background-color: #f8f9fa;
            color: #555;
        }
        .error { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>CollabPad</h1>

    <div>
        <input type="text" id="roomName" placeholder="Workspace name...">
        <button onclick="createRoom()">Create</button>
        <button onclick="joinRoom()">Join</button>
    </div>

    <div id="status" class="status">Not connected</div>

    <textarea id="editor" spellcheck="false"></textarea>

    <script>
        let socket = null;
        let currentRoom = null;
        let applyingRemote = false;
        const editor = document.getElementById('editor');
        const statusDiv = document.getElementById('status');

        function setStatus(text, isError) {
            statusDiv.textContent = text;
            statusDiv.className = isError ? 'status error' : 'status';
        }

        function connect(onOpen) {
            if (socket && socket.readyState === WebSocket.OPEN) {
                onOpen();
                return;
            }
            const scheme = location.protocol === 'https:' ? 'wss' : 'ws';
            socket = new WebSocket(scheme + '://' + location.host + '/ws');
            socket.onopen = onOpen;
            socket.onmessage = handleMessage;
            socket.onclose = () => setStatus('Disconnected', true);
            socket.onerror = () => setStatus('Connection error', true);
        }

        function roomInput() {
            const room = document.getElementById('roomName').value.trim();
            if (!room) {
                alert('Please enter a workspace name.');
                return null;
            }
            return room;
        }

        function createRoom() {
            const room = roomInput();
            if (!room) return;
            connect(() => {
                socket.send(JSON.stringify({ action: 'create-room', roomName: room }));
            });
        }

        function joinRoom(name) {
            const room = name || roomInput();
            if (!room) return;
            connect(() => {
                socket.send(JSON.stringify({ action: 'join-room', roomName: room }));
            });
        }

        function handleMessage(event) {
            const data = JSON.parse(event.data);

            if (data.error) {
                setStatus(data.error, true);
                return;
            }

            switch (data.action) {
            case 'room-created':
                joinRoom(data.roomName);
                break;
            case 'load-content':
                applyingRemote = true;
                editor.value = data.content;
                applyingRemote = false;
                break;
            case 'room-joined':
                currentRoom = data.roomName;
                document.getElementById('roomName').value = currentRoom;
                editor.style.display = 'block';
                setStatus('Room: ' + currentRoom);
                break;
            case 'user-count-update':
                if (currentRoom) {
                    setStatus('Room: ' + currentRoom + ' (' + data.count + ' online)');
                }
                break;
            case 'update-content':
                applyingRemote = true;
                const caretPos = editor.selectionStart;
                editor.value = data.content;
                editor.setSelectionRange(caretPos, caretPos);
                applyingRemote = false;
                break;
            }
        }

        editor.addEventListener('input', () => {
            if (applyingRemote || !currentRoom) return;
            if (socket && socket.readyState === WebSocket.OPEN) {
                socket.send(JSON.stringify({
                    action: 'update-content',
                    roomName: currentRoom,
                    content: editor.value
                }));
            }
        });

        // Direct room links: /room/{name} joins immediately.
        const match = location.pathname.match(/^\/room\/(.+)$/);
        if (match) {
            const room = decodeURIComponent(match[1]);
            document.getElementById('roomName').value = room;
            joinRoom(room);
        }
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		logrus.WithError(err).Warn("Error writing HTML response")
	}
}
