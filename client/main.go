package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
)

// Minimal interactive client for poking at a running server. Commands:
//
//	create            create a room
//	join CODE NAME    join a room
//	team sheriffs     pick a team
//	lock SHOOT_STRAIGHT
//	start / again / end
const (
	msgTypeCreateRoom = 101
	msgTypeJoinRoom   = 103
	msgTypeSelectTeam = 104
	msgTypeLockAction = 106
	msgTypeStartGame  = 107
	msgTypePlayAgain  = 108
	msgTypeEndSession = 109
)

func send(c *websocket.Conn, msgID uint16, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	go func() {
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				log.Printf("Read error: %v", err)
				return
			}
			if len(data) < 4 {
				continue
			}
			msgID := binary.BigEndian.Uint16(data[0:2])
			fmt.Printf("<< [%d] %s\n", msgID, data[4:])
		}
	}()

	playerID := fmt.Sprintf("cli-%d", os.Getpid())
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "create":
			err = send(c, msgTypeCreateRoom, map[string]interface{}{"hostId": playerID})
		case "join":
			if len(fields) < 3 {
				fmt.Println("usage: join CODE NAME")
				continue
			}
			err = send(c, msgTypeJoinRoom, map[string]string{
				"roomCode":   strings.ToUpper(fields[1]),
				"playerName": fields[2],
				"playerId":   playerID,
			})
		case "team":
			if len(fields) < 2 {
				fmt.Println("usage: team sheriffs|outlaws")
				continue
			}
			err = send(c, msgTypeSelectTeam, map[string]string{"team": fields[1]})
		case "lock":
			if len(fields) < 2 {
				fmt.Println("usage: lock ACTION")
				continue
			}
			err = send(c, msgTypeLockAction, map[string]string{"action": fields[1]})
		case "start":
			err = send(c, msgTypeStartGame, struct{}{})
		case "again":
			err = send(c, msgTypePlayAgain, struct{}{})
		case "end":
			err = send(c, msgTypeEndSession, struct{}{})
		case "quit":
			return
		default:
			fmt.Println("unknown command")
			continue
		}
		if err != nil {
			log.Printf("Send failed: %v", err)
			return
		}
	}
	<-interrupt
}
