package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func textResult(format string, args ...any) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

func (s *Server) handleGetMonitors(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, MonitorsOutput, error) {
	labels, err := s.daemon.GetMonitors()
	if err != nil {
		return nil, MonitorsOutput{}, err
	}
	if labels == nil {
		labels = []string{}
	}
	return nil, MonitorsOutput{Monitors: labels}, nil
}

func (s *Server) handleOpenProjector(_ context.Context, _ *mcpsdk.CallToolRequest, args OpenProjectorInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.OpenProjector(args.MonitorIndex); err != nil {
		return nil, nil, err
	}
	if args.MonitorIndex == nil {
		return textResult("Projector window opened with default placement"), nil, nil
	}
	return textResult("Projector window opened (monitor index %d)", *args.MonitorIndex), nil, nil
}

func (s *Server) handleCloseProjector(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.CloseProjector(); err != nil {
		return nil, nil, err
	}
	return textResult("Projector window closed"), nil, nil
}

func (s *Server) handleUpdateProjector(_ context.Context, _ *mcpsdk.CallToolRequest, args UpdateProjectorInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.UpdateProjector(args.SlideData); err != nil {
		return nil, nil, err
	}
	return textResult("Slide update sent (%d bytes)", len(args.SlideData)), nil, nil
}

func (s *Server) handleFetchContent(_ context.Context, _ *mcpsdk.CallToolRequest, args FetchContentInput) (*mcpsdk.CallToolResult, FetchContentOutput, error) {
	if args.URL == "" {
		return nil, FetchContentOutput{}, fmt.Errorf("url is required")
	}
	body, err := s.daemon.FetchContent(args.URL)
	if err != nil {
		return nil, FetchContentOutput{}, err
	}
	return nil, FetchContentOutput{Body: body}, nil
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, *st, nil
}
