package service

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

const (
	OperationMatch       = "/replybot.v1.Reply/Match"
	OperationCreateRule  = "/replybot.v1.Reply/CreateRule"
	OperationDeleteRule  = "/replybot.v1.Reply/DeleteRule"
	OperationGetRule     = "/replybot.v1.Reply/GetRule"
	OperationListRules   = "/replybot.v1.Reply/ListRules"
	OperationExists      = "/replybot.v1.Image/Exists"
	OperationInsertImage = "/replybot.v1.Image/InsertImage"
)

// RegisterReplyHTTPServer mounts the reply routes on s.
func RegisterReplyHTTPServer(s *khttp.Server, srv *ReplyService) {
	r := s.Route("/")
	r.POST("/v1/messages/match", matchHandler(srv))
	r.POST("/v1/rules", createRuleHandler(srv))
	r.GET("/v1/rules/{id}", getRuleHandler(srv))
	r.DELETE("/v1/rules/{id}", deleteRuleHandler(srv))
	r.GET("/v1/groups/{scope}/rules", listRulesHandler(srv))
}

// RegisterImageHTTPServer mounts the image routes on s.
func RegisterImageHTTPServer(s *khttp.Server, srv *ImageService) {
	r := s.Route("/")
	r.POST("/v1/images/{category}/exists", existsHandler(srv))
	r.POST("/v1/images/{category}", insertImageHandler(srv))
}

func pathInt(ctx khttp.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(ctx.Vars().Get(name), 10, 64)
	if err != nil {
		return 0, errors.BadRequest("INVALID_ARGUMENT", "invalid "+name).WithCause(err)
	}
	return v, nil
}

func matchHandler(srv *ReplyService) khttp.HandlerFunc {
	return func(ctx khttp.Context) error {
		var in MatchRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		khttp.SetOperation(ctx, OperationMatch)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return srv.Match(ctx, req.(*MatchRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(http.StatusOK, out)
	}
}

func createRuleHandler(srv *ReplyService) khttp.HandlerFunc {
	return func(ctx khttp.Context) error {
		var in CreateRuleRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		khttp.SetOperation(ctx, OperationCreateRule)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return srv.CreateRule(ctx, req.(*CreateRuleRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(http.StatusOK, out)
	}
}

func getRuleHandler(srv *ReplyService) khttp.HandlerFunc {
	return func(ctx khttp.Context) error {
		id, err := pathInt(ctx, "id")
		if err != nil {
			return err
		}
		khttp.SetOperation(ctx, OperationGetRule)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return srv.GetRule(ctx, req.(*RuleIDRequest))
		})
		out, err := h(ctx, &RuleIDRequest{ID: id})
		if err != nil {
			return err
		}
		return ctx.Result(http.StatusOK, out)
	}
}

func deleteRuleHandler(srv *ReplyService) khttp.HandlerFunc {
	return func(ctx khttp.Context) error {
		id, err := pathInt(ctx, "id")
		if err != nil {
			return err
		}
		khttp.SetOperation(ctx, OperationDeleteRule)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return srv.DeleteRule(ctx, req.(*RuleIDRequest))
		})
		out, err := h(ctx, &RuleIDRequest{ID: id})
		if err != nil {
			return err
		}
		return ctx.Result(http.StatusOK, out)
	}
}

func listRulesHandler(srv *ReplyService) khttp.HandlerFunc {
	return func(ctx khttp.Context) error {
		scope, err := pathInt(ctx, "scope")
		if err != nil {
			return err
		}
		in := &ListRulesRequest{Scope: scope}
		in.Page, _ = strconv.Atoi(ctx.Query().Get("page"))
		in.PageSize, _ = strconv.Atoi(ctx.Query().Get("page_size"))

		khttp.SetOperation(ctx, OperationListRules)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return srv.ListRules(ctx, req.(*ListRulesRequest))
		})
		out, err := h(ctx, in)
		if err != nil {
			return err
		}
		return ctx.Result(http.StatusOK, out)
	}
}

func existsHandler(srv *ImageService) khttp.HandlerFunc {
	return func(ctx khttp.Context) error {
		var in ExistsRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		in.Category = ctx.Vars().Get("category")
		khttp.SetOperation(ctx, OperationExists)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return srv.Exists(ctx, req.(*ExistsRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(http.StatusOK, out)
	}
}

func insertImageHandler(srv *ImageService) khttp.HandlerFunc {
	return func(ctx khttp.Context) error {
		var in InsertImageRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		in.Category = ctx.Vars().Get("category")
		khttp.SetOperation(ctx, OperationInsertImage)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return srv.InsertImage(ctx, req.(*InsertImageRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(http.StatusOK, out)
	}
}
