package session

import (
	"crypto/rsa"
	"io"

	"github.com/teldufalsari/simi/internal/errcode"
	"github.com/teldufalsari/simi/internal/wire"
)

// acceptPayload is the Accept frame's data: the responder's RSA public
// key plus the RandAndKey blob RSA-encrypted to the initiator's key.
type acceptPayload struct {
	PublicKey []byte
	Enc       []byte
}

func (p acceptPayload) encode() []byte {
	var buf []byte
	buf = wire.EncodeBytes(buf, p.PublicKey)
	buf = wire.EncodeBytes(buf, p.Enc)
	return buf
}

func decodeAcceptPayload(b []byte) (acceptPayload, error) {
	pkey, off, err := wire.ReadBytes(b, 0)
	if err != nil {
		return acceptPayload{}, err
	}
	enc, _, err := wire.ReadBytes(b, off)
	if err != nil {
		return acceptPayload{}, err
	}
	return acceptPayload{PublicKey: pkey, Enc: enc}, nil
}

// Conn is the minimal interface the handshake needs from a transport: a
// framed Message reader/writer. *transportConn (transport.go) implements
// it over a net.Conn with the frame codec from package wire.
type Conn interface {
	Send(wire.Message) error
	Receive() (wire.Message, error)
}

// RunInitiator performs the initiator side of the three-message handshake
// over conn, using localKey as this instance's
// long-lived identity and localPort as the listening port advertised in
// every frame. It returns (ctx, true, nil) on success, or (zero, false,
// nil) if the responder replied with anything other than an Accept
// carrying data ("no session"). A Network error indicates an I/O failure,
// a malformed Accept payload, or a crypto failure mid-handshake.
func RunInitiator(conn Conn, localKey *rsa.PrivateKey, localPort uint16) (CryptoContext, bool, error) {
	localPub := EncodePublicKey(&localKey.PublicKey)
	if err := conn.Send(wire.NewRequest(localPort, localPub)); err != nil {
		return CryptoContext{}, false, errcode.Wrap(errcode.Network, "cannot send Request", err)
	}

	reply, err := conn.Receive()
	if err != nil {
		return CryptoContext{}, false, errcode.Wrap(errcode.Network, "cannot read handshake reply", err)
	}
	if reply.Type != wire.Accept || reply.Data == nil {
		return CryptoContext{}, false, nil
	}

	accept, err := decodeAcceptPayload(reply.Data)
	if err != nil {
		return CryptoContext{}, false, errcode.Wrap(errcode.Network, "malformed Accept payload", err)
	}
	responderPub, err := DecodePublicKey(accept.PublicKey)
	if err != nil {
		return CryptoContext{}, false, errcode.Wrap(errcode.Network, "malformed responder public key", err)
	}

	plain, err := decryptRSA(localKey, accept.Enc)
	if err != nil {
		return CryptoContext{}, false, errcode.Wrap(errcode.Network, "cannot decrypt session secrets", err)
	}
	rk, err := DecodeRandAndKey(plain)
	if err != nil {
		return CryptoContext{}, false, errcode.Wrap(errcode.Network, "malformed session secrets", err)
	}

	reEncrypted, err := encryptRSA(responderPub, rk.Encode())
	if err != nil {
		return CryptoContext{}, false, errcode.Wrap(errcode.Network, "cannot re-encrypt session secrets", err)
	}
	if err := conn.Send(wire.NewConfirm(localPort, reEncrypted)); err != nil {
		return CryptoContext{}, false, errcode.Wrap(errcode.Network, "cannot send Confirm", err)
	}

	return CryptoContext{
		PeerPublicKey: responderPub,
		SessionKey:    rk.SessionKey,
		Nonce:         rk.Nonce,
	}, true, nil
}

// RunResponder performs the responder side of the handshake over conn,
// given the frame that triggered it (must already have been read by the
// caller, e.g. the arbiter, so it can first decide whether to run the
// handshake at all). Any deviation from the expected Request/Confirm
// shape is a Network error.
func RunResponder(conn Conn, localKey *rsa.PrivateKey, localPort uint16, request wire.Message) (CryptoContext, error) {
	if request.Type != wire.Request || request.Data == nil {
		return CryptoContext{}, errcode.New(errcode.Network, "ill-formed request")
	}
	initiatorPub, err := DecodePublicKey(request.Data)
	if err != nil {
		return CryptoContext{}, errcode.Wrap(errcode.Network, "malformed initiator public key", err)
	}

	rk, err := GenerateRandAndKey()
	if err != nil {
		return CryptoContext{}, err
	}
	enc, err := encryptRSA(initiatorPub, rk.Encode())
	if err != nil {
		return CryptoContext{}, errcode.Wrap(errcode.Network, "cannot encrypt session secrets", err)
	}
	localPub := EncodePublicKey(&localKey.PublicKey)
	accept := acceptPayload{PublicKey: localPub, Enc: enc}
	if err := conn.Send(wire.NewAccept(localPort, accept.encode())); err != nil {
		return CryptoContext{}, errcode.Wrap(errcode.Network, "cannot send Accept", err)
	}

	response, err := conn.Receive()
	if err != nil {
		return CryptoContext{}, errcode.Wrap(errcode.Network, "cannot read Confirm", err)
	}
	if response.Type != wire.Confirm || response.Data == nil {
		return CryptoContext{}, errcode.New(errcode.Network, "ill-formed confirm")
	}

	plain, err := decryptRSA(localKey, response.Data)
	if err != nil {
		return CryptoContext{}, errcode.Wrap(errcode.Network, "cannot decrypt Confirm", err)
	}
	confirmed, err := DecodeRandAndKey(plain)
	if err != nil {
		return CryptoContext{}, errcode.Wrap(errcode.Network, "malformed Confirm secrets", err)
	}

	// Strict verification: reject if either the nonce or the key differs.
	if confirmed.Nonce != rk.Nonce || confirmed.SessionKey != rk.SessionKey {
		return CryptoContext{}, errcode.New(errcode.Network, "confirm does not match issued secrets")
	}

	return CryptoContext{
		PeerPublicKey: initiatorPub,
		SessionKey:    rk.SessionKey,
		Nonce:         rk.Nonce,
	}, nil
}

// Decline reads one frame from conn and, if it is a well-formed Request,
// replies Deny carrying localPort. Used by the arbiter in the Idle state;
// the Waiting and Connected arbiters send their own Deny after reading
// the frame themselves.
func Decline(conn Conn, localPort uint16) error {
	msg, err := conn.Receive()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return errcode.Wrap(errcode.Network, "cannot read frame to decline", err)
	}
	if msg.Type == wire.Request {
		return conn.Send(wire.NewDeny(localPort))
	}
	return nil
}
