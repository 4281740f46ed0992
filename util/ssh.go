// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"net"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

// Console represents an SSH console instance.
type Console struct {
	// Banner is the login welcome banner
	Banner string
	// Help is the `help` command output
	Help string
	// Handler is the terminal command handler
	Handler func(*term.Terminal, string) error
	// Serial maps user names to raw serial lines, a session opened with
	// one of these names is bridged to the line instead of the shell.
	Serial map[string]io.ReadWriter
}

func (c *Console) shell(conn ssh.Channel, t *term.Terminal) {
	defer conn.Close()

	prev := log.Writer()
	log.SetOutput(io.MultiWriter(prev, t))
	defer log.SetOutput(prev)

	fmt.Fprintf(t, "%s\n", c.Banner)
	fmt.Fprintf(t, "%s\n", string(t.Escape.Cyan)+c.Help+string(t.Escape.Reset))

	for {
		cmd, err := t.ReadLine()

		if err == io.EOF {
			break
		}

		if err != nil {
			log.Printf("readline error: %v", err)
			continue
		}

		err = c.Handler(t, cmd)

		if err == io.EOF {
			break
		}

		if err != nil {
			fmt.Fprintf(t, "error: %v\n", err)
		}
	}

	log.Printf("closing ssh connection")
}

func bridge(conn ssh.Channel, name string, serial io.ReadWriter) {
	defer conn.Close()

	log.Printf("bridging ssh session to %s", name)

	go func() {
		_, _ = io.Copy(conn, serial)
	}()

	if err := CopyInput(serial, conn); err != nil {
		log.Printf("%s bridge error, %v", name, err)
	}

	log.Printf("closing %s bridge", name)
}

func (c *Console) handleChannel(user string, newChannel ssh.NewChannel) {
	if t := newChannel.ChannelType(); t != "session" {
		_ = newChannel.Reject(ssh.UnknownChannelType, fmt.Sprintf("unknown channel type: %s", t))
		return
	}

	conn, requests, err := newChannel.Accept()

	if err != nil {
		log.Printf("error accepting channel, %v", err)
		return
	}

	var t *term.Terminal

	if serial, ok := c.Serial[user]; ok {
		go bridge(conn, user, serial)
	} else {
		t = term.NewTerminal(conn, "")
		t.SetPrompt(string(t.Escape.Red) + "> " + string(t.Escape.Reset))

		go c.shell(conn, t)
	}

	go func() {
		for req := range requests {
			reqSize := len(req.Payload)

			switch req.Type {
			case "shell":
				// do not accept payload commands
				_ = req.Reply(reqSize == 0, nil)
			case "pty-req":
				// p10, 6.2.  Requesting a Pseudo-Terminal, RFC4254
				if reqSize < 4 {
					log.Printf("malformed pty-req request")
					_ = req.Reply(false, nil)
					continue
				}

				termVariableSize := int(req.Payload[3])

				if reqSize < 4+termVariableSize+8 {
					log.Printf("malformed pty-req request")
					_ = req.Reply(false, nil)
					continue
				}

				w := binary.BigEndian.Uint32(req.Payload[4+termVariableSize:])
				h := binary.BigEndian.Uint32(req.Payload[4+termVariableSize+4:])

				if t != nil {
					_ = t.SetSize(int(w), int(h))
				}

				_ = req.Reply(true, nil)
			case "window-change":
				// p10, 6.7.  Window Dimension Change Message, RFC4254
				if reqSize < 8 {
					log.Printf("malformed window-change request")
					continue
				}

				w := binary.BigEndian.Uint32(req.Payload)
				h := binary.BigEndian.Uint32(req.Payload[4:])

				if t != nil {
					_ = t.SetSize(int(w), int(h))
				}
			default:
				if req.WantReply {
					_ = req.Reply(false, nil)
				}
			}
		}
	}()
}

func (c *Console) handleChannels(user string, chans <-chan ssh.NewChannel) {
	for newChannel := range chans {
		go c.handleChannel(user, newChannel)
	}
}

func (c *Console) listen(listener net.Listener, srv *ssh.ServerConfig) {
	for {
		conn, err := listener.Accept()

		if err != nil {
			log.Printf("error accepting connection, %v", err)
			return
		}

		go func() {
			sshConn, chans, reqs, err := ssh.NewServerConn(conn, srv)

			if err != nil {
				log.Printf("error accepting handshake, %v", err)
				return
			}

			log.Printf("new ssh connection from %s (%s) user:%s", sshConn.RemoteAddr(), sshConn.ClientVersion(), sshConn.User())

			go ssh.DiscardRequests(reqs)
			c.handleChannels(sshConn.User(), chans)
		}()
	}
}

// Start instantiates an SSH console on the given listener.
func (c *Console) Start(listener net.Listener) (err error) {
	srv := &ssh.ServerConfig{
		NoClientAuth: true,
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)

	if err != nil {
		return fmt.Errorf("private key generation error, %v", err)
	}

	signer, err := ssh.NewSignerFromKey(key)

	if err != nil {
		return fmt.Errorf("key conversion error, %v", err)
	}

	log.Printf("starting ssh server (%s)", ssh.FingerprintSHA256(signer.PublicKey()))

	srv.AddHostKey(signer)

	go c.listen(listener, srv)

	return
}
