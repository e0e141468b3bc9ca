package handler

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const avatarThumbWidth = 256

// UploadAvatar 处理头像上传，并额外生成一张缩略图。
// 返回的 URL 由客户端随后通过资料更新接口写入用户记录。
func (a *API) UploadAvatar(c *gin.Context) {
	filePath, fileURL, ok := a.saveUploadedImage(c, "avatars")
	if !ok {
		return
	}

	thumbURL, err := writeThumbnail(filePath, a.uploadURL+"/avatars")
	if err != nil {
		// 缩略图失败不阻断上传，原图仍可用
		thumbURL = fileURL
	}

	c.JSON(http.StatusOK, gin.H{
		"url":       fileURL,
		"thumb_url": thumbURL,
	})
}

// UploadProof 处理打卡凭证图片上传。
// 返回的 URL 由客户端随后写入对应的打卡记录。
func (a *API) UploadProof(c *gin.Context) {
	_, fileURL, ok := a.saveUploadedImage(c, "proof")
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": fileURL})
}

func (a *API) saveUploadedImage(c *gin.Context, subdir string) (string, string, bool) {
	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "未找到上传的图片")
		return "", "", false
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(c, http.StatusBadRequest, "只允许上传图片文件")
		return "", "", false
	}

	dir := filepath.Join(a.uploadDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		respondError(c, http.StatusInternalServerError, "创建上传目录失败")
		return "", "", false
	}

	ext := filepath.Ext(file.Filename)
	newFilename := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.New().String(), ext)
	filePath := filepath.Join(dir, newFilename)

	if err := c.SaveUploadedFile(file, filePath); err != nil {
		respondError(c, http.StatusInternalServerError, "保存文件失败")
		return "", "", false
	}

	fileURL := fmt.Sprintf("%s/%s/%s", a.uploadURL, subdir, newFilename)
	return filePath, fileURL, true
}

// writeThumbnail 生成定宽缩略图，输出 JPEG
func writeThumbnail(srcPath, urlPrefix string) (string, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return "", err
	}

	bounds := src.Bounds()
	if bounds.Dx() <= avatarThumbWidth {
		return urlPrefix + "/" + filepath.Base(srcPath), nil
	}

	height := bounds.Dy() * avatarThumbWidth / bounds.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, avatarThumbWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	ext := filepath.Ext(srcPath)
	thumbPath := strings.TrimSuffix(srcPath, ext) + "-thumb.jpg"
	out, err := os.Create(thumbPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if err := jpeg.Encode(out, dst, &jpeg.Options{Quality: 85}); err != nil {
		return "", err
	}

	return urlPrefix + "/" + filepath.Base(thumbPath), nil
}
