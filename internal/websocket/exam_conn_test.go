package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stemsi/speaking-backend/internal/examflow"
	"github.com/stretchr/testify/require"
)

// pair returns the server-side ExamConn and the candidate's client end.
func pair(t *testing.T) (*ExamConn, *websocket.Conn) {
	t.Helper()

	serverSide := make(chan *ExamConn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		serverSide <- NewExamConn(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return <-serverSide, client
}

func TestExamConnWritesEvents(t *testing.T) {
	ec, client := pair(t)

	require.NoError(t, ec.PlayAudio(7, examflow.AudioGuide, "/audio/common/intro.mp3"))
	var play map[string]interface{}
	require.NoError(t, client.ReadJSON(&play))
	require.Equal(t, "play_audio", play["event"])
	require.EqualValues(t, 7, play["token"])
	require.Equal(t, "/audio/common/intro.mp3", play["url"])

	require.NoError(t, ec.Phase(examflow.PhaseView{Phase: examflow.PhasePreparing, QuestionNumber: 2}))
	var phase map[string]interface{}
	require.NoError(t, client.ReadJSON(&phase))
	require.Equal(t, "phase", phase["event"])
	require.Equal(t, "preparing", phase["phase"])

	require.NoError(t, ec.UploadStatus(2, examflow.UploadFailed))
	var status UploadStatusResponse
	require.NoError(t, client.ReadJSON(&status))
	require.Equal(t, EventUploadStatus, status.Event)
	require.Equal(t, examflow.UploadFailed, status.Status)
}

func TestExamConnReadsActionsAndChunks(t *testing.T) {
	ec, client := pair(t)

	require.NoError(t, client.WriteJSON(Request{Action: ActionAudioEnded, Token: 3}))
	f, err := ec.Read()
	require.NoError(t, err)
	require.NotNil(t, f.Request)
	require.Equal(t, ActionAudioEnded, f.Request.Action)
	require.EqualValues(t, 3, f.Request.Token)

	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))
	f, err = ec.Read()
	require.NoError(t, err)
	require.Nil(t, f.Request)
	require.Equal(t, []byte{1, 2, 3}, f.Chunk)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("not json")))
	_, err = ec.Read()
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestExamConnClose(t *testing.T) {
	ec, client := pair(t)

	ec.Close("exam finished")
	ec.Close("exam finished")
	require.ErrorIs(t, ec.Tick(5), ErrConnClosed)

	_, _, err := client.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}
