package events

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// envelope is the wire shape of a gateway packet.
type envelope struct {
	Cmd   string      `json:"cmd" msgpack:"cmd"`
	Nonce string      `json:"nonce" msgpack:"nonce"`
	Val   interface{} `json:"val" msgpack:"val"`
}

type Packet struct {
	Nonce     int64
	CreatedAt int64

	JsonEncoded    []byte
	MsgpackEncoded []byte
}

func createPacket(server *Server, cmd string, val interface{}) (*Packet, error) {
	var p = Packet{
		Nonce:     server.getNextNonce(),
		CreatedAt: time.Now().UnixMilli(),
	}
	var err error

	env := envelope{
		Cmd:   cmd,
		Nonce: strconv.FormatInt(p.Nonce, 10),
		Val:   val,
	}

	// json
	p.JsonEncoded, err = json.Marshal(&env)
	if err != nil {
		return nil, err
	}

	// msgpack
	p.MsgpackEncoded, err = msgpack.Marshal(&env)
	if err != nil {
		return nil, err
	}

	return &p, err
}
