package server

// Command integration wires the chunk-layer message stream into the RPC
// dispatcher and drives the session state machine (spec.md §4.4): connect
// replies with the control burst already sent by conn.Accept, createStream
// hands back the fixed stream id, publish validates the key, enforces the
// max_streams cap, and spawns the external HLS segmenter; audio/video/data
// messages are thereafter serialized as FLV tags into its stdin.

import (
	"context"
	"fmt"
	"time"

	streammedia "github.com/DishankChauhan/streamX/internal/media"
	"github.com/DishankChauhan/streamX/internal/logger"
	"github.com/DishankChauhan/streamX/internal/resource"
	"github.com/DishankChauhan/streamX/internal/rtmp/chunk"
	iconn "github.com/DishankChauhan/streamX/internal/rtmp/conn"
	"github.com/DishankChauhan/streamX/internal/rtmp/control"
	"github.com/DishankChauhan/streamX/internal/rtmp/media"
	"github.com/DishankChauhan/streamX/internal/rtmp/rpc"
	"github.com/DishankChauhan/streamX/internal/rtmp/server/hooks"
)

// commandState holds the mutable, single-goroutine-owned fields a
// connection's command handlers need across the connect → publish flow.
// Nothing here is shared with another connection (spec.md §5 "Shared
// resources" — the registry's active-key set is the only exception, and it
// guards itself).
type commandState struct {
	app       string
	streamKey string
	stream    *Stream

	segmenter     *streammedia.Segmenter
	mediaLogger   *MediaLogger
	codecDetector *media.CodecDetector
}

// attachCommandHandling installs a dispatcher-backed message handler on the
// provided connection. Call once, immediately after conn.Accept returns and
// before c.Start().
func attachCommandHandling(c *iconn.Connection, reg *Registry, cfg *Config, monitor *resource.Monitor, hookMgr *hooks.HookManager, log *logger.Logger) {
	if c == nil || reg == nil || cfg == nil {
		return
	}
	sess := c.Session()
	st := &commandState{
		mediaLogger:   NewMediaLogger(c.ID(), log, 30*time.Second),
		codecDetector: &media.CodecDetector{},
	}

	d := rpc.NewDispatcher(func() string { return st.app })
	d.Send = c.SendMessage

	d.OnConnect = func(cc *rpc.ConnectCommand, msg *chunk.Message) error {
		st.app = cc.App
		sess.SetConnectInfo(cc.App, cc.TcURL, cc.FlashVer, uint8(cc.ObjectEncoding))
		log.Info("connect command", "app", cc.App, "tcUrl", cc.TcURL, "flashVer", cc.FlashVer)

		resp, err := rpc.BuildConnectResponse(cc.TransactionID, "Connection succeeded")
		if err != nil {
			return err
		}
		if err := c.SendMessage(resp); err != nil {
			return fmt.Errorf("send connect response: %w", err)
		}
		if err := c.SendMessage(control.EncodeUserControlStreamBegin(0)); err != nil {
			return fmt.Errorf("send stream begin: %w", err)
		}
		bwDone, err := rpc.BuildOnBWDone()
		if err != nil {
			return err
		}
		return c.SendMessage(bwDone)
	}

	d.OnReleaseStream = func(sc *rpc.SimpleCommand, msg *chunk.Message) error {
		resp, err := rpc.BuildGenericResult(sc.TransactionID)
		if err != nil {
			return err
		}
		return c.SendMessage(resp)
	}

	d.OnFCPublish = func(sc *rpc.SimpleCommand, msg *chunk.Message) error {
		resp, err := rpc.BuildGenericResult(sc.TransactionID)
		if err != nil {
			return err
		}
		return c.SendMessage(resp)
	}

	d.OnFCUnpublish = func(sc *rpc.SimpleCommand, msg *chunk.Message) error {
		endPublish(st, reg, c, log, "FCUnpublish")
		return nil
	}

	d.OnDeleteStream = func(vals []interface{}, msg *chunk.Message) error {
		endPublish(st, reg, c, log, "deleteStream")
		return nil
	}

	d.OnCheckBandwidth = func(sc *rpc.SimpleCommand, msg *chunk.Message) error {
		resp, err := rpc.BuildCheckBandwidthResponse(sc.TransactionID, 5_000_000)
		if err != nil {
			return err
		}
		if err := c.SendMessage(resp); err != nil {
			return err
		}
		notice, err := rpc.BuildOnBWCheck()
		if err != nil {
			return err
		}
		return c.SendMessage(notice)
	}

	d.OnCreateStream = func(cs *rpc.CreateStreamCommand, msg *chunk.Message) error {
		streamID := sess.AllocateStreamID()
		resp, _, err := rpc.BuildCreateStreamResponse(cs.TransactionID)
		if err != nil {
			return err
		}
		log.Info("createStream", "stream_id", streamID, "txn_id", cs.TransactionID)
		return c.SendMessage(resp)
	}

	d.OnPublish = func(pc *rpc.PublishCommand, msg *chunk.Message) error {
		return handlePublishCommand(st, sess, reg, cfg, monitor, hookMgr, c, pc, log)
	}

	c.SetMessageHandler(func(m *chunk.Message) {
		if m == nil {
			return
		}
		switch m.TypeID {
		case 8, 9, 18: // audio, video, data/metadata
			handleMediaMessage(st, sess, m, log)
			return
		case rpc.CommandMessageAMF0TypeIDForTest():
			if err := d.Dispatch(m); err != nil {
				log.Warn("command dispatch failed", "error", err)
			}
		default:
			log.Debug("ignoring message", "type_id", m.TypeID)
		}
	})

	go func() {
		<-c.Done()
		endPublish(st, reg, c, log, "connection_closed")
		st.mediaLogger.Stop()
	}()
}

// handlePublishCommand drives the Stream-Created → Publishing transition:
// enforce max_streams, validate/register the stream key, and spawn the
// segmenter. Every terminal disposition in spec.md §7's publish row is
// produced here.
func handlePublishCommand(st *commandState, sess *iconn.Session, reg *Registry, cfg *Config, monitor *resource.Monitor, hookMgr *hooks.HookManager, c *iconn.Connection, pc *rpc.PublishCommand, log *logger.Logger) error {
	// publish is only applicable after createStream; otherwise reply
	// Publish.Failed and keep the session in its current state.
	if sess.State() != iconn.SessionStateStreamCreated {
		resp, err := BuildPublishFailed(pc.StreamKey, fmt.Sprintf("publish not applicable in state %s", sess.State()))
		if err != nil {
			return err
		}
		return c.SendMessage(resp)
	}
	if reg.Count() >= cfg.Domain.MaxStreams {
		if monitor != nil {
			monitor.LogRejection(pc.StreamKey, reg.Count(), cfg.Domain.MaxStreams)
		}
		resp, err := BuildConnectRejected(fmt.Sprintf("server at capacity (%d/%d)", reg.Count(), cfg.Domain.MaxStreams))
		if err == nil {
			_ = c.SendMessage(resp)
		}
		_ = c.Close()
		return nil
	}

	if err := ValidateStreamKey(pc.StreamKey); err != nil {
		resp, berr := BuildPublishBadName(pc.StreamKey, err.Error())
		if berr == nil {
			_ = c.SendMessage(resp)
		}
		_ = c.Close()
		return nil
	}

	stream, created := reg.CreateStream(pc.StreamKey)
	if !created {
		resp, err := BuildPublishBadName(pc.StreamKey, "stream key already active")
		if err == nil {
			_ = c.SendMessage(resp)
		}
		_ = c.Close()
		return nil
	}

	dir := cfg.Domain.StreamDir(pc.StreamKey)
	seg, err := streammedia.Spawn(context.Background(), cfg.Domain.SegmenterPath, dir,
		cfg.Domain.SegmentDuration, cfg.Domain.PlaylistSize, int64(cfg.Domain.ThrottleBytesSec), log)
	if err != nil {
		log.Error("segmenter spawn failed", "stream_key", pc.StreamKey, "error", err)
		reg.DeleteStream(pc.StreamKey)
		resp, berr := BuildPublishFailed(pc.StreamKey, "segmenter unavailable")
		if berr == nil {
			_ = c.SendMessage(resp)
		}
		_ = c.Close()
		return nil
	}

	stream.SetSegmenter(seg)
	st.streamKey = pc.StreamKey
	st.stream = stream
	st.segmenter = seg
	sess.SetStreamKey(pc.StreamKey)

	log.Info("publish started", "stream_key", pc.StreamKey, "publish_type", pc.PublishingType, "dir", dir)
	if hookMgr != nil {
		hookMgr.TriggerEvent(context.Background(), *hooks.NewEvent(hooks.EventPublishStart).
			WithConnID(c.ID()).WithStreamKey(pc.StreamKey))
	}

	resp, err := BuildPublishStart(pc.StreamKey)
	if err != nil {
		return err
	}
	return c.SendMessage(resp)
}

// handleMediaMessage forwards one audio/video/data message to the
// segmenter as an FLV tag, once the session has reached Publishing.
// Earlier phases silently drop media per spec.md invariant 4.
func handleMediaMessage(st *commandState, sess *iconn.Session, m *chunk.Message, log *logger.Logger) {
	if sess.State() != iconn.SessionStatePublishing || st.segmenter == nil {
		return
	}
	st.mediaLogger.ProcessMessage(m)
	if st.stream != nil {
		st.codecDetector.Process(m.TypeID, m.Payload, st.stream, log)
	}
	if err := st.segmenter.WriteTag(m.TypeID, m.Timestamp, m.Payload); err != nil {
		log.Error("segmenter write failed", "stream_key", st.streamKey, "error", err)
	}
}

// endPublish terminates the segmenter (if any) and releases the active
// stream-key slot. Safe to call multiple times (deleteStream/FCUnpublish
// followed by socket close, or vice versa).
func endPublish(st *commandState, reg *Registry, c *iconn.Connection, log *logger.Logger, reason string) {
	if st.streamKey == "" {
		return
	}
	if st.segmenter != nil {
		st.segmenter.Stop()
		st.segmenter = nil
	}
	reg.DeleteStream(st.streamKey)
	log.Info("publish ended", "stream_key", st.streamKey, "reason", reason)
	if c.Session() != nil {
		c.Session().Close()
	}
	st.streamKey = ""
	st.stream = nil
}
